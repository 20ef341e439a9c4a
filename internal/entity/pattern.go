package entity

import (
	"time"

	"github.com/google/uuid"
)

// LearnedPattern is a supplier+field scoped extraction regex with learning metadata.
// Uniquely keyed by (Supplier, FieldName, Pattern); equivalents are merged, not duplicated.
type LearnedPattern struct {
	ID          uuid.UUID `json:"id"`
	Supplier    string    `json:"supplier"`
	FieldName   string    `json:"field_name"`
	Pattern     string    `json:"pattern"` // capture group 1 holds the value when present
	Priority    int       `json:"priority"`
	SuccessRate float64   `json:"success_rate"` // written only through RecordOutcome
	UsageCount  int       `json:"usage_count"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PatternSample is one retained document text for regression-testing pattern candidates.
type PatternSample struct {
	Supplier      string    `json:"supplier"`
	FieldName     string    `json:"field_name"`
	Text          string    `json:"text"`
	ExpectedValue string    `json:"expected_value"`
	CreatedAt     time.Time `json:"created_at"`
}

// PatternLearningResult reports the outcome of a learn/reinforce operation.
type PatternLearningResult struct {
	Pattern        *LearnedPattern `json:"pattern,omitempty"`
	Created        bool            `json:"created"`
	Reinforced     bool            `json:"reinforced"`
	BeforeAccuracy float64         `json:"before_accuracy"`
	AfterAccuracy  float64         `json:"after_accuracy"`
	RequiresReview bool            `json:"requires_review"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// MergeStrategy controls how imported patterns reconcile with existing ones.
type MergeStrategy string

const (
	MergeSkipExisting      MergeStrategy = "SKIP_EXISTING"
	MergeOverwriteExisting MergeStrategy = "OVERWRITE_EXISTING"
	MergeByAccuracy        MergeStrategy = "MERGE_BY_ACCURACY"
	MergeCreateNewVersion  MergeStrategy = "CREATE_NEW_VERSION"
)

// PatternCatalog is the bulk interchange format for pattern export/import.
type PatternCatalog struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Patterns   []LearnedPattern `json:"patterns"`
}
