package entity

import (
	"time"

	"github.com/google/uuid"
)

// Template is a target document (e.g. a report workbook) fields get mapped onto.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	SheetName string    `json:"sheet_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TemplateFieldMapping binds one field name to one target location within a template.
type TemplateFieldMapping struct {
	TemplateID     uuid.UUID `json:"template_id"`
	FieldName      string    `json:"field_name"`
	TargetLocation string    `json:"target_location"` // opaque, e.g. a spreadsheet cell like "B2"
	LocationType   string    `json:"location_type"`   // "CELL" for spreadsheet targets
	Description    string    `json:"description,omitempty"`
	Required       bool      `json:"required"`
}
