// Package patterns holds the per-supplier extraction pattern catalog and the
// learner that feeds it from user corrections.
package patterns

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

// outcomeAlpha is the EWMA weight for success-rate updates:
// rate' = rate*(1-alpha) + outcome*alpha.
const outcomeAlpha = 0.1

type key struct {
	supplier, field string
}

type bucket struct {
	mu       sync.Mutex
	patterns []*entity.LearnedPattern
}

// Store is the shared learned-pattern catalog. Mutations are serialized per
// (Supplier, FieldName); reads copy, so a reader never observes a
// partially-written pattern. Writes go through to the repository when one is
// attached.
type Store struct {
	mu      sync.RWMutex
	buckets map[key]*bucket
	repo    repository.PatternRepository
	logger  *slog.Logger
}

func NewStore(repo repository.PatternRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		buckets: make(map[key]*bucket),
		repo:    repo,
		logger:  logger,
	}
}

// Load hydrates the catalog from the repository.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	ps, err := s.repo.List(ctx, "")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[key]*bucket)
	for _, p := range ps {
		k := key{p.Supplier, p.FieldName}
		b := s.buckets[k]
		if b == nil {
			b = &bucket{}
			s.buckets[k] = b
		}
		cp := *p
		b.patterns = append(b.patterns, &cp)
	}
	s.logger.Info("patterns.store.loaded", "patterns", len(ps))
	return nil
}

func (s *Store) getBucket(k key, create bool) *bucket {
	s.mu.RLock()
	b := s.buckets[k]
	s.mu.RUnlock()
	if b != nil || !create {
		return b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.buckets[k]; b == nil {
		b = &bucket{}
		s.buckets[k] = b
	}
	return b
}

// ListActive returns copies of the active patterns for (supplier, field),
// ordered by Priority desc then SuccessRate desc.
func (s *Store) ListActive(supplier, field string) []entity.LearnedPattern {
	b := s.getBucket(key{supplier, field}, false)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]entity.LearnedPattern, 0, len(b.patterns))
	for _, p := range b.patterns {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].SuccessRate > out[j].SuccessRate
	})
	return out
}

// RecordUsage increments the usage counter for one pattern. Attempt-based:
// called for every try regardless of whether the field round succeeds later.
func (s *Store) RecordUsage(ctx context.Context, supplier, field string, id uuid.UUID) {
	s.mutate(ctx, supplier, field, id, func(p *entity.LearnedPattern) {
		p.UsageCount++
	})
}

// RecordOutcome folds a confirmed success/failure into the pattern's success
// rate. This is the only writer of SuccessRate.
func (s *Store) RecordOutcome(ctx context.Context, supplier, field string, id uuid.UUID, success bool) {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	s.mutate(ctx, supplier, field, id, func(p *entity.LearnedPattern) {
		p.SuccessRate = p.SuccessRate*(1-outcomeAlpha) + outcome*outcomeAlpha
		p.UsageCount++
	})
}

// Deactivate retires a pattern without deleting it, preserving history.
func (s *Store) Deactivate(ctx context.Context, supplier, field string, id uuid.UUID) {
	s.mutate(ctx, supplier, field, id, func(p *entity.LearnedPattern) {
		p.IsActive = false
	})
}

func (s *Store) mutate(ctx context.Context, supplier, field string, id uuid.UUID, fn func(*entity.LearnedPattern)) {
	b := s.getBucket(key{supplier, field}, false)
	if b == nil {
		return
	}
	b.mu.Lock()
	var changed *entity.LearnedPattern
	for _, p := range b.patterns {
		if p.ID == id {
			fn(p)
			p.UpdatedAt = time.Now().UTC()
			cp := *p
			changed = &cp
			break
		}
	}
	b.mu.Unlock()

	if changed != nil && s.repo != nil {
		if err := s.repo.Upsert(ctx, changed); err != nil {
			s.logger.Error("patterns.store.persist_failed", "pattern_id", id, "error", err)
		}
	}
}

// Upsert inserts a pattern or merges it with the existing one keyed by
// (Supplier, FieldName, Pattern). Merging reinforces rather than duplicates:
// the higher priority and success rate win, usage counts add up.
// Returns the stored copy and whether a merge happened.
func (s *Store) Upsert(ctx context.Context, p entity.LearnedPattern) (entity.LearnedPattern, bool) {
	b := s.getBucket(key{p.Supplier, p.FieldName}, true)
	b.mu.Lock()
	var (
		stored *entity.LearnedPattern
		merged bool
	)
	for _, existing := range b.patterns {
		if existing.Pattern == p.Pattern {
			if p.Priority > existing.Priority {
				existing.Priority = p.Priority
			}
			if p.SuccessRate > existing.SuccessRate {
				existing.SuccessRate = p.SuccessRate
			}
			existing.UsageCount += p.UsageCount
			existing.IsActive = existing.IsActive || p.IsActive
			existing.UpdatedAt = time.Now().UTC()
			stored, merged = existing, true
			break
		}
	}
	if stored == nil {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		now := time.Now().UTC()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		cp := p
		b.patterns = append(b.patterns, &cp)
		stored = &cp
	}
	out := *stored
	b.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Upsert(ctx, &out); err != nil {
			s.logger.Error("patterns.store.persist_failed", "pattern_id", out.ID, "error", err)
		}
	}
	return out, merged
}

// Reinforce bumps priority and success rate for the pattern with the given
// text, if present. Used when a correction re-derives an existing pattern or a
// user confirms an extraction.
func (s *Store) Reinforce(ctx context.Context, supplier, field, patternText string) (entity.LearnedPattern, bool) {
	b := s.getBucket(key{supplier, field}, false)
	if b == nil {
		return entity.LearnedPattern{}, false
	}
	b.mu.Lock()
	var out *entity.LearnedPattern
	for _, p := range b.patterns {
		if p.Pattern == patternText {
			p.Priority++
			p.SuccessRate = p.SuccessRate*(1-outcomeAlpha) + outcomeAlpha
			p.UsageCount++
			p.IsActive = true
			p.UpdatedAt = time.Now().UTC()
			cp := *p
			out = &cp
			break
		}
	}
	b.mu.Unlock()
	if out == nil {
		return entity.LearnedPattern{}, false
	}
	if s.repo != nil {
		if err := s.repo.Upsert(ctx, out); err != nil {
			s.logger.Error("patterns.store.persist_failed", "pattern_id", out.ID, "error", err)
		}
	}
	return *out, true
}

// All returns copies of every pattern, optionally restricted to one supplier.
func (s *Store) All(supplier string) []entity.LearnedPattern {
	s.mu.RLock()
	buckets := make([]*bucket, 0, len(s.buckets))
	for k, b := range s.buckets {
		if supplier == "" || k.supplier == supplier {
			buckets = append(buckets, b)
		}
	}
	s.mu.RUnlock()

	var out []entity.LearnedPattern
	for _, b := range buckets {
		b.mu.Lock()
		for _, p := range b.patterns {
			out = append(out, *p)
		}
		b.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Supplier != out[j].Supplier {
			return out[i].Supplier < out[j].Supplier
		}
		if out[i].FieldName != out[j].FieldName {
			return out[i].FieldName < out[j].FieldName
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// Find returns a copy of the pattern with the given key, if stored.
func (s *Store) Find(supplier, field, patternText string) (entity.LearnedPattern, bool) {
	b := s.getBucket(key{supplier, field}, false)
	if b == nil {
		return entity.LearnedPattern{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.patterns {
		if p.Pattern == patternText {
			return *p, true
		}
	}
	return entity.LearnedPattern{}, false
}
