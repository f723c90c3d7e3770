// Package storage provides database models and repositories for the
// DPP engine.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RawSubmissionRepository stores supplier payloads as received.
type RawSubmissionRepository struct {
	db DB
}

// NewRawSubmissionRepository creates a new raw submission repository.
func NewRawSubmissionRepository(db DB) *RawSubmissionRepository {
	return &RawSubmissionRepository{db: db}
}

// Save stores a raw submission, assigning an id when absent.
func (r *RawSubmissionRepository) Save(ctx context.Context, sub *RawSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO raw_submissions (id, payload, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, sub.ID, []byte(sub.Payload), sub.CreatedAt)
	return err
}

// PassportRepository stores processed Digital Product Passports.
type PassportRepository struct {
	db DB
}

// NewPassportRepository creates a new passport repository.
func NewPassportRepository(db DB) *PassportRepository {
	return &PassportRepository{db: db}
}

// Save upserts a passport record keyed by product_id. Reprocessing a
// product replaces its document but keeps the original created_at,
// which is read back so the record always mirrors the stored row.
func (r *PassportRepository) Save(ctx context.Context, rec *PassportRecord) error {
	now := time.Now().UTC()
	rec.UpdatedAt = now

	query := `
		INSERT INTO passports (product_id, product_name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id) DO UPDATE SET
			product_name = excluded.product_name,
			document = excluded.document,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ProductID, rec.ProductName, []byte(rec.Document), now, rec.UpdatedAt,
	); err != nil {
		return err
	}

	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM passports WHERE product_id = $1`, rec.ProductID,
	).Scan(&rec.CreatedAt)
}

// GetByID retrieves a passport record by product id.
func (r *PassportRepository) GetByID(ctx context.Context, productID string) (*PassportRecord, error) {
	query := `
		SELECT product_id, product_name, document, created_at, updated_at
		FROM passports WHERE product_id = $1
	`
	rec := &PassportRecord{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&rec.ProductID, &rec.ProductName, &rec.Document, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// List returns all passport records ordered by product id.
func (r *PassportRepository) List(ctx context.Context) ([]*PassportRecord, error) {
	query := `
		SELECT product_id, product_name, document, created_at, updated_at
		FROM passports
		ORDER BY product_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*PassportRecord
	for rows.Next() {
		rec := &PassportRecord{}
		if err := rows.Scan(
			&rec.ProductID, &rec.ProductName, &rec.Document, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a passport record by product id.
func (r *PassportRepository) Delete(ctx context.Context, productID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM passports WHERE product_id = $1`, productID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
