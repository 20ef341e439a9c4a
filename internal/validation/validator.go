// Package validation normalizes and checks extracted field values per their
// declared type. Fields are never discarded: failures annotate, warnings
// propose a corrected form, and acceptance stays with the caller.
package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

// ValidationError marks a value that is entirely unparsable for its type.
// Non-fatal: the field stays in the result, flagged.
type ValidationError struct {
	FieldName string `json:"field_name"`
	Message   string `json:"message"`
}

// ValidationWarning carries a derivable normalized form.
type ValidationWarning struct {
	FieldName      string `json:"field_name"`
	Message        string `json:"message"`
	SuggestedValue string `json:"suggested_value"`
}

// ValidationResult reports per-field outcomes alongside the untouched inputs.
// len(OriginalFields) == len(CorrectedFields) always.
type ValidationResult struct {
	OriginalFields  []entity.ExtractedField `json:"original_fields"`
	CorrectedFields []entity.ExtractedField `json:"corrected_fields"`
	Errors          []ValidationError       `json:"errors,omitempty"`
	Warnings        []ValidationWarning     `json:"warnings,omitempty"`
}

// IsClean reports whether validation raised neither errors nor warnings.
func (r ValidationResult) IsClean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// acceptedDateFormats are tried in order when parsing date fields.
var acceptedDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"02 January 2006",
	"02/01/06",
	"2/1/06",
}

const canonicalDateFormat = "2006-01-02"

var (
	currencySymbolRe = regexp.MustCompile(`(?i)^(RM|MYR|USD|SGD|AUD|EUR|GBP|\$|€|£)\s*`)
	emailRe          = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.\w{2,}$`)
	phoneStripRe     = regexp.MustCompile(`[\s().-]`)
)

type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// ValidateExtractedFields applies the type-specific check for each field.
// The document type is accepted for future per-type rules; checks today key
// off the field's own declared type.
func (e *Engine) ValidateExtractedFields(fields []entity.ExtractedField, _ constants.DocumentType) ValidationResult {
	result := ValidationResult{
		OriginalFields:  make([]entity.ExtractedField, len(fields)),
		CorrectedFields: make([]entity.ExtractedField, len(fields)),
	}
	copy(result.OriginalFields, fields)
	copy(result.CorrectedFields, fields)

	for i := range result.CorrectedFields {
		f := &result.CorrectedFields[i]
		normalized, err := normalizeValue(f.Value, f.FieldType)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, ValidationError{
				FieldName: f.FieldName,
				Message:   err.Error(),
			})
		case normalized != f.Value:
			result.Warnings = append(result.Warnings, ValidationWarning{
				FieldName:      f.FieldName,
				Message:        fmt.Sprintf("value normalized from %q", f.Value),
				SuggestedValue: normalized,
			})
			f.Value = normalized
		}
	}
	return result
}

// normalizeValue returns the canonical form of a value for its type, or an
// error when the value is entirely unparsable.
func normalizeValue(value string, fieldType constants.FieldType) (string, error) {
	v := strings.TrimSpace(value)
	switch fieldType {
	case constants.FieldTypeDate:
		return normalizeDate(v)
	case constants.FieldTypeCurrency:
		return normalizeCurrency(v)
	case constants.FieldTypeNumber:
		return normalizeNumber(v)
	case constants.FieldTypePhone:
		return normalizePhone(v)
	case constants.FieldTypeEmail:
		if !emailRe.MatchString(v) {
			return v, fmt.Errorf("not a valid email address: %q", v)
		}
		return strings.ToLower(v), nil
	default:
		// free text has no check
		return value, nil
	}
}

func normalizeDate(v string) (string, error) {
	for _, layout := range acceptedDateFormats {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(canonicalDateFormat), nil
		}
	}
	return v, fmt.Errorf("date does not match any accepted format: %q", v)
}

// normalizeCurrency reduces a money string to a plain decimal with two
// places, e.g. "RM245.67" -> "245.67".
func normalizeCurrency(v string) (string, error) {
	s := currencySymbolRe.ReplaceAllString(v, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v, fmt.Errorf("not a currency amount: %q", v)
	}
	return strconv.FormatFloat(f, 'f', 2, 64), nil
}

func normalizeNumber(v string) (string, error) {
	s := strings.ReplaceAll(v, ",", "")
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return v, fmt.Errorf("not a number: %q", v)
	}
	return s, nil
}

// normalizePhone strips formatting punctuation and requires 10-15 digits.
func normalizePhone(v string) (string, error) {
	s := phoneStripRe.ReplaceAllString(v, "")
	digits := strings.TrimPrefix(s, "+")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return v, fmt.Errorf("phone number contains non-digits: %q", v)
		}
	}
	if len(digits) < 10 || len(digits) > 15 {
		return v, fmt.Errorf("phone number must have 10-15 digits, got %d", len(digits))
	}
	return s, nil
}
