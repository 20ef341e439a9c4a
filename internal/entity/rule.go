package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/constants"
)

// ConditionKind enumerates the match condition types a MappingRule may carry.
type ConditionKind string

const (
	CondSupplierEquals         ConditionKind = "SUPPLIER_EQUALS"
	CondDocumentTypeEquals     ConditionKind = "DOCUMENT_TYPE_EQUALS"
	CondTemplateCategoryEquals ConditionKind = "TEMPLATE_CATEGORY_EQUALS"
	CondFieldExists            ConditionKind = "FIELD_EXISTS"
	CondFieldValueMatches      ConditionKind = "FIELD_VALUE_MATCHES"
)

// RuleCondition is one weighted, composable match condition.
// Operand semantics depend on Kind: a supplier/type/category literal for the
// equality kinds, a field name for FieldExists, and "field" + Pattern regex for
// FieldValueMatches.
type RuleCondition struct {
	Kind    ConditionKind `json:"kind"`
	Operand string        `json:"operand"`
	Pattern string        `json:"pattern,omitempty"`
	Weight  float64       `json:"weight"`
}

// RuleProjection maps one extracted field onto a target template location.
type RuleProjection struct {
	FieldName      string `json:"field_name"`
	TargetLocation string `json:"target_location"`
}

// MappingRule is a reusable, condition-gated recipe for projecting extracted
// fields onto template locations.
type MappingRule struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Conditions  []RuleCondition  `json:"conditions"`
	Projections []RuleProjection `json:"projections"`
	Priority    int              `json:"priority"`
	SuccessRate float64          `json:"success_rate"` // written only through RecordRuleSuccess/Failure
	UsageCount  int              `json:"usage_count"`
	IsActive    bool             `json:"is_active"`
	LastUsedAt  time.Time        `json:"last_used_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DocumentPattern is a point-in-time snapshot of a document's classifiable
// characteristics. Rule-matching input only; never persisted.
type DocumentPattern struct {
	Supplier         string                 `json:"supplier"`
	DocumentType     constants.DocumentType `json:"document_type"`
	TemplateCategory string                 `json:"template_category"`
	AvailableFields  []string               `json:"available_fields"`
	FieldValues      map[string]string      `json:"field_values"`
	Metadata         map[string]string      `json:"metadata,omitempty"`
}

// HasField reports membership in AvailableFields.
func (p DocumentPattern) HasField(name string) bool {
	for _, f := range p.AvailableFields {
		if f == name {
			return true
		}
	}
	return false
}
