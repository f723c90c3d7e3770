package storage

import (
	"encoding/json"
	"time"
)

// RawSubmission is a supplier payload exactly as received, kept for
// reprocessing and audit.
type RawSubmission struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// PassportRecord is a stored Digital Product Passport. The document is
// the passport's canonical JSON form and is treated as opaque here;
// product_id and product_name are lifted out for keying and listing.
type PassportRecord struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Document    json.RawMessage `json:"document"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
