package patterns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docufield/internal/entity"
)

const catalogVersion = 1

// ImportSummary reports what an import did per merge bucket.
type ImportSummary struct {
	Imported    int `json:"imported"`
	Skipped     int `json:"skipped"`
	Merged      int `json:"merged"`
	Overwritten int `json:"overwritten"`
	Versioned   int `json:"versioned"`
}

// catalogSchema constrains pattern import payloads before any merge runs.
func catalogSchema() map[string]any {
	rate := map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"version", "patterns"},
		"properties": map[string]any{
			"version":     map[string]any{"type": "integer", "minimum": 1},
			"exported_at": map[string]any{"type": "string"},
			"patterns": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"supplier", "field_name", "pattern"},
					"properties": map[string]any{
						"id":           map[string]any{"type": "string"},
						"supplier":     map[string]any{"type": "string", "minLength": 1},
						"field_name":   map[string]any{"type": "string", "minLength": 1},
						"pattern":      map[string]any{"type": "string", "minLength": 1},
						"priority":     map[string]any{"type": "integer"},
						"success_rate": rate,
						"usage_count":  map[string]any{"type": "integer", "minimum": 0},
						"is_active":    map[string]any{"type": "boolean"},
						"created_at":   map[string]any{"type": "string"},
						"updated_at":   map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// validateCatalogJSON validates "data" against the catalog schema.
func validateCatalogJSON(data []byte) error {
	b, err := json.Marshal(catalogSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Export serializes the catalog for one supplier ("" = all) as JSON.
func (s *Store) Export(supplier string) ([]byte, error) {
	catalog := entity.PatternCatalog{
		Version:    catalogVersion,
		ExportedAt: time.Now().UTC(),
		Patterns:   s.All(supplier),
	}
	return json.MarshalIndent(catalog, "", "  ")
}

// Import merges an exported catalog into the store. Patterns are keyed by
// (Supplier, FieldName, Pattern); the merge strategy decides what happens on
// a key collision.
func (s *Store) Import(ctx context.Context, data []byte, strategy entity.MergeStrategy) (ImportSummary, error) {
	var summary ImportSummary
	if err := validateCatalogJSON(data); err != nil {
		return summary, err
	}
	var catalog entity.PatternCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return summary, err
	}

	for _, p := range catalog.Patterns {
		existing, found := s.Find(p.Supplier, p.FieldName, p.Pattern)
		if !found {
			incoming := p
			incoming.ID = uuid.Nil // force a fresh identity in this store
			s.Upsert(ctx, incoming)
			summary.Imported++
			continue
		}
		switch strategy {
		case entity.MergeSkipExisting:
			summary.Skipped++
		case entity.MergeOverwriteExisting:
			s.overwrite(ctx, existing, p)
			summary.Overwritten++
		case entity.MergeByAccuracy:
			if p.SuccessRate > existing.SuccessRate {
				s.overwrite(ctx, existing, p)
			}
			summary.Merged++
		case entity.MergeCreateNewVersion:
			// (Supplier, FieldName, Pattern) admits exactly one record, so a
			// new version of an identical pattern supersedes the incumbent's
			// learning metadata in place; the old counters do not survive.
			s.overwrite(ctx, existing, p)
			summary.Versioned++
		default:
			return summary, fmt.Errorf("unknown merge strategy: %q", strategy)
		}
	}
	return summary, nil
}

// overwrite replaces the stored pattern's learning metadata with the imported
// one's, keeping the stored identity.
func (s *Store) overwrite(ctx context.Context, existing entity.LearnedPattern, imported entity.LearnedPattern) {
	s.mutate(ctx, existing.Supplier, existing.FieldName, existing.ID, func(stored *entity.LearnedPattern) {
		stored.Priority = imported.Priority
		stored.SuccessRate = imported.SuccessRate
		stored.UsageCount = imported.UsageCount
		stored.IsActive = imported.IsActive
	})
}
