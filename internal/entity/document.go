package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/constants"
)

// Position locates a field on the source page, for UI highlighting only.
type Position struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExtractedField is a single named value pulled out of a document's text.
type ExtractedField struct {
	FieldName     string                `json:"field_name"`
	Value         string                `json:"value"`
	Confidence    float64               `json:"confidence"`
	FieldType     constants.FieldType   `json:"field_type"`
	Source        constants.FieldSource `json:"source"`
	Position      *Position             `json:"position,omitempty"`
	IsVerified    bool                  `json:"is_verified"`
	OriginalValue string                `json:"original_value,omitempty"`
}

// ExtractedDocument represents one processed document for data transfer between layers.
// Mutated throughout processing; treated as immutable once the status is terminal.
type ExtractedDocument struct {
	ID                uuid.UUID                  `json:"id"`
	SourcePath        string                     `json:"source_path"`
	SourceFormat      string                     `json:"source_format"`
	DocumentType      constants.DocumentType     `json:"document_type"`
	Supplier          string                     `json:"supplier"`
	Fields            []ExtractedField           `json:"fields"`
	OverallConfidence float64                    `json:"overall_confidence"`
	Status            constants.ProcessingStatus `json:"status"`
	ErrorMessage      string                     `json:"error_message,omitempty"`
	RawText           string                     `json:"raw_text,omitempty"`
	Duration          time.Duration              `json:"duration"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

// Field returns the field with the given name, or nil.
func (d *ExtractedDocument) Field(name string) *ExtractedField {
	for i := range d.Fields {
		if d.Fields[i].FieldName == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// RecomputeConfidence sets OverallConfidence to the mean of field confidences,
// or 0 when no fields were extracted.
func (d *ExtractedDocument) RecomputeConfidence() {
	if len(d.Fields) == 0 {
		d.OverallConfidence = 0
		return
	}
	var sum float64
	for _, f := range d.Fields {
		sum += f.Confidence
	}
	d.OverallConfidence = sum / float64(len(d.Fields))
}

// ApplyCorrection replaces a field's value, stashing the prior value for learning.
// Fields are never removed from a document; returns false if the field is absent.
func (d *ExtractedDocument) ApplyCorrection(name, correctValue string) bool {
	f := d.Field(name)
	if f == nil {
		return false
	}
	if f.OriginalValue == "" {
		f.OriginalValue = f.Value
	}
	f.Value = correctValue
	f.Confidence = 1.0
	f.Source = constants.SourceManual
	f.IsVerified = true
	d.RecomputeConfidence()
	return true
}

// Snapshot builds the ephemeral rule-matching view of this document.
func (d *ExtractedDocument) Snapshot(templateCategory string) DocumentPattern {
	p := DocumentPattern{
		Supplier:         d.Supplier,
		DocumentType:     d.DocumentType,
		TemplateCategory: templateCategory,
		AvailableFields:  make([]string, 0, len(d.Fields)),
		FieldValues:      make(map[string]string, len(d.Fields)),
		Metadata:         map[string]string{},
	}
	for _, f := range d.Fields {
		p.AvailableFields = append(p.AvailableFields, f.FieldName)
		p.FieldValues[f.FieldName] = f.Value
	}
	return p
}
