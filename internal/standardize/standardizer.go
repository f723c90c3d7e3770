// Package standardize turns raw supplier submissions into Digital
// Product Passports. Two strategies exist: a deterministic rule-based
// pipeline built on the extract package, and an optional assisted path
// that delegates to a text-generation model. The assisted path is
// best-effort: transport or parse failures fall back to rules silently,
// while a response that parses but violates the record contract is a
// ValidationError surfaced to the caller.
package standardize

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dpp-comply/dpp-engine/internal/corpus"
	"github.com/dpp-comply/dpp-engine/internal/extract"
	"github.com/dpp-comply/dpp-engine/internal/llm"
	"github.com/dpp-comply/dpp-engine/internal/observability"
	"github.com/dpp-comply/dpp-engine/internal/passport"
)

// unstructuredKeys are the raw-map fields whose string values form the
// free-text blob fed to the extractors, in this order.
var unstructuredKeys = []string{"description", "notes", "bom_text", "specs", "details"}

// referenceProbe stands in for an empty blob so structured-only
// submissions still pick up the baseline citations.
const referenceProbe = "material recycled co2 repair recycling"

// defaultRecyclingInstructions fills the field when the supplier gave none.
const defaultRecyclingInstructions = "Check local guidelines; disassemble by material where possible."

// Standardizer builds passports from raw submissions.
type Standardizer struct {
	logger    *observability.Logger
	entries   []corpus.Entry
	completer llm.Completer
	timeout   time.Duration
}

// New creates a rule-based Standardizer over the given corpus.
func New(logger *observability.Logger, entries []corpus.Entry) *Standardizer {
	return &Standardizer{logger: logger, entries: entries}
}

// WithCompleter enables the assisted path. A zero timeout means the
// completer's own deadline applies.
func (s *Standardizer) WithCompleter(c llm.Completer, timeout time.Duration) *Standardizer {
	s.completer = c
	s.timeout = timeout
	return s
}

// Standardize converts a raw submission into a normalized passport.
// The only error it returns is *passport.ValidationError.
func (s *Standardizer) Standardize(ctx context.Context, raw map[string]any) (*passport.DigitalProductPassport, error) {
	if s.completer != nil {
		if obj, ok := s.completeAssisted(ctx, raw); ok {
			return s.buildAssisted(obj)
		}
	}
	return s.buildRuleBased(raw)
}

// completeAssisted runs the completion round-trip and returns the parsed
// object. Any failure here means "no assisted result", never an error.
func (s *Standardizer) completeAssisted(ctx context.Context, raw map[string]any) (map[string]any, bool) {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}

	prompt := fmt.Sprintf(`You are standardizing a Digital Product Passport from messy supplier data.
Return a strict JSON object with keys: product_id, product_name, manufacturer, materials_composition (list of {name, percentage}),
recycled_content_percentage, co2_footprint_kg, repair_score, recycling_instructions, supply_chain_partners (list of strings),
compliance_status, espr_article_references (list of strings).

Messy data:
%s

If a value is missing, infer conservatively and explain minimal assumptions in a hidden field 'notes'.`, rawJSON)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Debug().Err(err).Msg("assisted standardization unavailable, using rules")
		return nil, false
	}

	objJSON := llm.ExtractJSONObject(content)
	if objJSON == "" {
		s.logger.Debug().Msg("assisted response contained no JSON object, using rules")
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(objJSON), &obj); err != nil {
		s.logger.Debug().Err(err).Msg("assisted response was not valid JSON, using rules")
		return nil, false
	}

	delete(obj, "notes")
	return obj, true
}

// buildAssisted converts a parsed assisted object into a passport. The
// object already got past the fail-soft boundary, so contract violations
// here are the supplier-facing ValidationError.
func (s *Standardizer) buildAssisted(obj map[string]any) (*passport.DigitalProductPassport, error) {
	for _, key := range []string{"product_id", "product_name", "manufacturer"} {
		v, ok := obj[key]
		if !ok {
			return nil, &passport.ValidationError{Field: key, Reason: "required"}
		}
		if _, ok := v.(string); !ok {
			return nil, &passport.ValidationError{Field: key, Reason: "must be a string"}
		}
	}

	objJSON, err := json.Marshal(obj)
	if err != nil {
		return nil, &passport.ValidationError{Field: "root", Reason: err.Error()}
	}

	var dpp passport.DigitalProductPassport
	if err := json.Unmarshal(objJSON, &dpp); err != nil {
		field := "root"
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
			field = typeErr.Field
		}
		return nil, &passport.ValidationError{Field: field, Reason: "wrong type"}
	}

	for _, m := range dpp.MaterialsComposition {
		if m.Percentage < 0 || m.Percentage > 100 {
			return nil, &passport.ValidationError{
				Field:  "materials_composition",
				Reason: fmt.Sprintf("percentage %v out of range", m.Percentage),
			}
		}
	}

	if err := dpp.Validate(); err != nil {
		return nil, err
	}
	dpp.Normalize()
	return &dpp, nil
}

// buildRuleBased runs the deterministic pipeline with its defaulting chains.
func (s *Standardizer) buildRuleBased(raw map[string]any) (*passport.DigitalProductPassport, error) {
	blob := unstructuredBlob(raw)

	productID, err := stringField(raw, "product_id")
	if err != nil {
		return nil, err
	}
	if productID == "" {
		productID = uuid.New().String()
	}

	productName, err := firstStringField(raw, "product_name", "name")
	if err != nil {
		return nil, err
	}
	if productName == "" {
		productName = "Unknown Product"
	}

	manufacturer, err := firstStringField(raw, "manufacturer", "brand")
	if err != nil {
		return nil, err
	}
	if manufacturer == "" {
		manufacturer = "Unknown Manufacturer"
	}

	instructions, err := stringField(raw, "recycling_instructions")
	if err != nil {
		return nil, err
	}
	if instructions == "" {
		instructions = defaultRecyclingInstructions
	}

	partners, err := partnersField(raw)
	if err != nil {
		return nil, err
	}

	refText := blob
	if refText == "" {
		refText = referenceProbe
	}
	refs := extract.References(refText, s.entries)
	if len(refs) == 0 {
		refs = []string{"ESPR_Article_1", "ESPR_Article_2"}
	}

	dpp := &passport.DigitalProductPassport{
		ProductID:                 productID,
		ProductName:               productName,
		Manufacturer:              manufacturer,
		MaterialsComposition:      extract.Materials(blob),
		RecycledContentPercentage: extract.RecycledContent(blob),
		CO2FootprintKg:            extract.CO2Footprint(blob),
		RepairScore:               repairScoreString(raw["repair_score"]),
		RecyclingInstructions:     instructions,
		SupplyChainPartners:       partners,
		ComplianceStatus:          passport.StatusUnknown,
		ESPRArticleReferences:     refs,
	}

	dpp.Normalize()
	return dpp, nil
}

// unstructuredBlob joins the string values of the well-known free-text
// keys in their canonical order. Non-string values are skipped.
func unstructuredBlob(raw map[string]any) string {
	var parts []string
	for _, k := range unstructuredKeys {
		if v, ok := raw[k].(string); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "\n")
}

// stringField returns raw[key] as a string. Absent or nil values yield
// "". Any other non-string value is a ValidationError.
func stringField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return "", &passport.ValidationError{Field: key, Reason: "must be a string"}
	}
	return str, nil
}

// firstStringField returns the first non-empty string among keys.
func firstStringField(raw map[string]any, keys ...string) (string, error) {
	for _, k := range keys {
		str, err := stringField(raw, k)
		if err != nil {
			return "", err
		}
		if str != "" {
			return str, nil
		}
	}
	return "", nil
}

// partnersField coerces supply_chain_partners (falling back to the
// suppliers alias) into a string slice.
func partnersField(raw map[string]any) ([]string, error) {
	for _, key := range []string{"supply_chain_partners", "suppliers"} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch list := v.(type) {
		case []string:
			if len(list) == 0 {
				continue
			}
			return list, nil
		case []any:
			if len(list) == 0 {
				continue
			}
			out := make([]string, 0, len(list))
			for _, item := range list {
				str, ok := item.(string)
				if !ok {
					return nil, &passport.ValidationError{Field: key, Reason: "entries must be strings"}
				}
				out = append(out, str)
			}
			return out, nil
		default:
			return nil, &passport.ValidationError{Field: key, Reason: "must be a list of strings"}
		}
	}
	return []string{}, nil
}

// repairScoreString coerces the raw repair score into its string form.
// Zero-ish values mean "not provided".
func repairScoreString(v any) string {
	switch val := v.(type) {
	case nil:
		return passport.RepairScoreUnknown
	case string:
		if val == "" {
			return passport.RepairScoreUnknown
		}
		return val
	case float64:
		if val == 0 {
			return passport.RepairScoreUnknown
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		if val == 0 {
			return passport.RepairScoreUnknown
		}
		return strconv.Itoa(val)
	case bool:
		if !val {
			return passport.RepairScoreUnknown
		}
		return "true"
	default:
		return fmt.Sprintf("%v", val)
	}
}
