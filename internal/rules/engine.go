package rules

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/internal/entity"
	"github.com/joseph-ayodele/docufield/internal/repository"
)

// outcomeAlpha is the EWMA weight for rule success-rate updates:
// rate' = rate*(1-alpha) + outcome*alpha.
const outcomeAlpha = 0.1

type entry struct {
	mu   sync.Mutex
	rule entity.MappingRule
}

// Engine is the shared mapping-rule catalog plus the matcher that applies it.
// Mutations are serialized per rule; reads copy. Writes go through to the
// repository when one is attached.
type Engine struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]*entry
	repo      repository.RuleRepository
	threshold float64
	logger    *slog.Logger
}

// NewEngine builds the catalog. threshold is the weighted-match acceptance
// cutoff; zero or negative selects DefaultScoreThreshold (strict AND).
func NewEngine(repo repository.RuleRepository, threshold float64, logger *slog.Logger) *Engine {
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		entries:   make(map[uuid.UUID]*entry),
		repo:      repo,
		threshold: threshold,
		logger:    logger,
	}
}

// Load hydrates the catalog from the repository.
func (e *Engine) Load(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	rs, err := e.repo.List(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[uuid.UUID]*entry, len(rs))
	for _, r := range rs {
		e.entries[r.ID] = &entry{rule: *r}
	}
	e.logger.Info("rules.engine.loaded", "rules", len(rs))
	return nil
}

// Upsert adds or replaces a rule in the catalog.
func (e *Engine) Upsert(ctx context.Context, rule entity.MappingRule) entity.MappingRule {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	e.mu.Lock()
	en := e.entries[rule.ID]
	if en == nil {
		en = &entry{}
		e.entries[rule.ID] = en
	}
	e.mu.Unlock()

	en.mu.Lock()
	en.rule = rule
	en.mu.Unlock()

	e.persist(ctx, rule)
	return rule
}

// Delete removes a rule from the catalog and the repository.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) {
	e.mu.Lock()
	delete(e.entries, id)
	e.mu.Unlock()
	if e.repo != nil {
		if err := e.repo.Delete(ctx, id); err != nil {
			e.logger.Error("rules.engine.delete_failed", "rule_id", id, "error", err)
		}
	}
}

// All returns copies of every rule, ordered by priority desc then success desc.
func (e *Engine) All() []entity.MappingRule {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.entries))
	for _, en := range e.entries {
		entries = append(entries, en)
	}
	e.mu.RUnlock()

	out := make([]entity.MappingRule, 0, len(entries))
	for _, en := range entries {
		en.mu.Lock()
		out = append(out, en.rule)
		en.mu.Unlock()
	}
	sortRules(out)
	return out
}

// Get returns a copy of one rule.
func (e *Engine) Get(id uuid.UUID) (entity.MappingRule, bool) {
	e.mu.RLock()
	en := e.entries[id]
	e.mu.RUnlock()
	if en == nil {
		return entity.MappingRule{}, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.rule, true
}

// FindMatchingRules returns copies of every active rule whose weighted
// condition score reaches the engine's threshold, ordered by Priority desc
// then SuccessRate desc. At the default threshold of 1.0 this is strict AND.
func (e *Engine) FindMatchingRules(doc entity.DocumentPattern) []entity.MappingRule {
	var out []entity.MappingRule
	for _, rule := range e.All() {
		if !rule.IsActive {
			continue
		}
		if ok, _ := EvaluateRuleWeighted(rule, doc, e.threshold); ok {
			out = append(out, rule)
		}
	}
	return out
}

// ApplyMappingRules picks the single best matching rule and projects the
// document's fields through it. Ties on priority break by SuccessRate, then
// by most recent LastUsedAt. Projections whose field is absent or empty in
// the document are dropped, not errors. Returns nil mappings when no rule
// matches.
func (e *Engine) ApplyMappingRules(ctx context.Context, doc entity.DocumentPattern, templateID uuid.UUID) ([]entity.TemplateFieldMapping, *entity.MappingRule) {
	matched := e.FindMatchingRules(doc)
	if len(matched) == 0 {
		return nil, nil
	}
	best := matched[0]
	for _, r := range matched[1:] {
		if betterRule(r, best) {
			best = r
		}
	}

	var mappings []entity.TemplateFieldMapping
	for _, proj := range best.Projections {
		value, ok := doc.FieldValues[proj.FieldName]
		if !ok || value == "" {
			continue
		}
		mappings = append(mappings, entity.TemplateFieldMapping{
			TemplateID:     templateID,
			FieldName:      proj.FieldName,
			TargetLocation: proj.TargetLocation,
			LocationType:   "CELL",
		})
	}

	e.mutate(ctx, best.ID, func(r *entity.MappingRule) {
		r.LastUsedAt = time.Now().UTC()
	})
	e.logger.Info("rules.engine.applied", "rule_id", best.ID, "rule", best.Name, "mappings", len(mappings))
	return mappings, &best
}

// RecordRuleSuccess folds a confirmed success into the rule's success rate.
func (e *Engine) RecordRuleSuccess(ctx context.Context, id uuid.UUID) {
	e.recordOutcome(ctx, id, 1.0)
}

// RecordRuleFailure folds a confirmed failure into the rule's success rate.
func (e *Engine) RecordRuleFailure(ctx context.Context, id uuid.UUID) {
	e.recordOutcome(ctx, id, 0.0)
}

func (e *Engine) recordOutcome(ctx context.Context, id uuid.UUID, outcome float64) {
	e.mutate(ctx, id, func(r *entity.MappingRule) {
		r.SuccessRate = r.SuccessRate*(1-outcomeAlpha) + outcome*outcomeAlpha
		r.UsageCount++
	})
}

// CreateRuleFromMappings derives a reusable rule from one document's manual
// mapping session: equality conditions on the document's identity plus a
// FieldExists condition per mapped field.
func (e *Engine) CreateRuleFromMappings(ctx context.Context, name string, doc entity.DocumentPattern, mappings []entity.TemplateFieldMapping) entity.MappingRule {
	conditions := []entity.RuleCondition{
		{Kind: entity.CondSupplierEquals, Operand: doc.Supplier, Weight: 2},
		{Kind: entity.CondDocumentTypeEquals, Operand: string(doc.DocumentType), Weight: 2},
	}
	if doc.TemplateCategory != "" {
		conditions = append(conditions, entity.RuleCondition{
			Kind: entity.CondTemplateCategoryEquals, Operand: doc.TemplateCategory, Weight: 1,
		})
	}
	projections := make([]entity.RuleProjection, 0, len(mappings))
	for _, m := range mappings {
		conditions = append(conditions, entity.RuleCondition{
			Kind: entity.CondFieldExists, Operand: m.FieldName, Weight: 1,
		})
		projections = append(projections, entity.RuleProjection{
			FieldName:      m.FieldName,
			TargetLocation: m.TargetLocation,
		})
	}
	return e.Upsert(ctx, entity.MappingRule{
		Name:        name,
		Conditions:  conditions,
		Projections: projections,
		Priority:    1,
		SuccessRate: 0.5, // neutral prior, earned up through outcomes
		IsActive:    true,
	})
}

func (e *Engine) mutate(ctx context.Context, id uuid.UUID, fn func(*entity.MappingRule)) {
	e.mu.RLock()
	en := e.entries[id]
	e.mu.RUnlock()
	if en == nil {
		return
	}
	en.mu.Lock()
	fn(&en.rule)
	en.rule.UpdatedAt = time.Now().UTC()
	cp := en.rule
	en.mu.Unlock()
	e.persist(ctx, cp)
}

func (e *Engine) persist(ctx context.Context, rule entity.MappingRule) {
	if e.repo == nil {
		return
	}
	if err := e.repo.Upsert(ctx, &rule); err != nil {
		e.logger.Error("rules.engine.persist_failed", "rule_id", rule.ID, "error", err)
	}
}

func betterRule(a, b entity.MappingRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.SuccessRate != b.SuccessRate {
		return a.SuccessRate > b.SuccessRate
	}
	return a.LastUsedAt.After(b.LastUsedAt)
}

func sortRules(rs []entity.MappingRule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Priority != rs[j].Priority {
			return rs[i].Priority > rs[j].Priority
		}
		return rs[i].SuccessRate > rs[j].SuccessRate
	})
}
