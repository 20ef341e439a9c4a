// Package extraction resolves standard field names against raw document text
// through a priority-ordered cascade of learned patterns and generic rules.
package extraction

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/constants"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

// PatternSource is the read side of the learned-pattern catalog the engine
// consumes. Usage recording is attempt-based: the engine records every try,
// success is recorded separately by the caller after validation/confirmation.
type PatternSource interface {
	ListActive(supplier, field string) []entity.LearnedPattern
	RecordUsage(ctx context.Context, supplier, field string, id uuid.UUID)
}

// strategy tries to resolve one field; the cascade stops at the first hit.
type strategy func(ctx context.Context, text, supplier string, def FieldDef) (entity.ExtractedField, bool)

type Engine struct {
	patterns   PatternSource
	strategies []strategy
	logger     *slog.Logger
}

func NewEngine(patterns PatternSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{patterns: patterns, logger: logger}
	// Fixed order: learned patterns first, then generic rules. An unresolved
	// field is omitted, not an error; manual/cloud fallback is the caller's
	// explicit escalation.
	e.strategies = []strategy{e.tryLearnedPatterns, e.tryGenericRules}
	return e
}

// ExtractFields resolves every standard field defined for the document type.
func (e *Engine) ExtractFields(ctx context.Context, text string, docType constants.DocumentType, supplier string) []entity.ExtractedField {
	return e.extract(ctx, text, supplier, StandardFields(docType))
}

// ExtractSpecificFields restricts extraction to a caller-supplied field-name
// set. Names outside the document type's standard table are still attempted,
// typed by their declared type elsewhere (text when unknown), so learned
// patterns can resolve them on weakly classified documents.
func (e *Engine) ExtractSpecificFields(ctx context.Context, text string, docType constants.DocumentType, supplier string, names []string) []entity.ExtractedField {
	byName := make(map[string]FieldDef)
	for _, def := range StandardFields(docType) {
		byName[def.Name] = def
	}
	defs := make([]FieldDef, 0, len(names))
	for _, n := range names {
		def, ok := byName[n]
		if !ok {
			def = FieldDef{Name: n, Type: FieldTypeOf(n)}
		}
		defs = append(defs, def)
	}
	return e.extract(ctx, text, supplier, defs)
}

func (e *Engine) extract(ctx context.Context, text, supplier string, defs []FieldDef) []entity.ExtractedField {
	var out []entity.ExtractedField
	for _, def := range defs {
		for _, try := range e.strategies {
			field, ok := try(ctx, text, supplier, def)
			if ok {
				out = append(out, field)
				break
			}
		}
	}
	return out
}

// tryLearnedPatterns walks the supplier's patterns for the field in priority
// order. Every attempt increments the pattern's usage counter.
func (e *Engine) tryLearnedPatterns(ctx context.Context, text, supplier string, def FieldDef) (entity.ExtractedField, bool) {
	if supplier == "" || supplier == constants.UnknownSupplier || e.patterns == nil {
		return entity.ExtractedField{}, false
	}
	for _, p := range e.patterns.ListActive(supplier, def.Name) {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			e.logger.Warn("extraction.pattern.invalid", "supplier", supplier, "field", def.Name, "pattern_id", p.ID, "error", err)
			continue
		}
		e.patterns.RecordUsage(ctx, supplier, def.Name, p.ID)
		value := captureValue(re, text)
		if value == "" {
			continue
		}
		return entity.ExtractedField{
			FieldName:  def.Name,
			Value:      value,
			Confidence: p.SuccessRate,
			FieldType:  def.Type,
			Source:     constants.SourceLearnedPattern,
		}, true
	}
	return entity.ExtractedField{}, false
}

// tryGenericRules walks the fixed per-field rule list, most-specific-first.
func (e *Engine) tryGenericRules(_ context.Context, text, _ string, def FieldDef) (entity.ExtractedField, bool) {
	for _, rule := range genericRules[def.Name] {
		value := captureValue(rule.re, text)
		if value == "" {
			continue
		}
		return entity.ExtractedField{
			FieldName:  def.Name,
			Value:      value,
			Confidence: rule.confidence,
			FieldType:  def.Type,
			Source:     constants.SourceGenericRule,
		}, true
	}
	return entity.ExtractedField{}, false
}

// captureValue prefers capture group 1 over the full match and trims.
func captureValue(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}
