package patterns

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docufield/internal/entity"
	"github.com/joseph-ayodele/docufield/internal/repository"
)

// DefaultCorpusCap bounds the retained regression samples per
// (supplier, field). FIFO: the newest samples win.
const DefaultCorpusCap = 25

// SampleCorpus retains recent (text, expected value) pairs per key so pattern
// candidates can be regression-tested before promotion.
type SampleCorpus struct {
	mu     sync.Mutex
	byKey  map[key][]entity.PatternSample
	cap    int
	repo   repository.SampleRepository
	logger *slog.Logger
}

func NewSampleCorpus(cap int, repo repository.SampleRepository, logger *slog.Logger) *SampleCorpus {
	if cap <= 0 {
		cap = DefaultCorpusCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SampleCorpus{
		byKey:  make(map[key][]entity.PatternSample),
		cap:    cap,
		repo:   repo,
		logger: logger,
	}
}

// Load hydrates recent samples for one key from the repository, once.
func (c *SampleCorpus) load(ctx context.Context, k key) {
	if c.repo == nil {
		return
	}
	samples, err := c.repo.List(ctx, k.supplier, k.field)
	if err != nil {
		c.logger.Error("patterns.corpus.load_failed", "supplier", k.supplier, "field", k.field, "error", err)
		return
	}
	if len(samples) > c.cap {
		samples = samples[:c.cap]
	}
	c.byKey[k] = samples
}

// Add retains a sample, evicting the oldest past the cap.
func (c *SampleCorpus) Add(ctx context.Context, s entity.PatternSample) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	k := key{s.Supplier, s.FieldName}

	c.mu.Lock()
	if _, ok := c.byKey[k]; !ok {
		c.load(ctx, k)
	}
	for _, existing := range c.byKey[k] {
		if existing.Text == s.Text && existing.ExpectedValue == s.ExpectedValue {
			c.mu.Unlock()
			return
		}
	}
	// newest first
	c.byKey[k] = append([]entity.PatternSample{s}, c.byKey[k]...)
	if len(c.byKey[k]) > c.cap {
		c.byKey[k] = c.byKey[k][:c.cap]
	}
	c.mu.Unlock()

	if c.repo != nil {
		if err := c.repo.Add(ctx, s); err != nil {
			c.logger.Error("patterns.corpus.persist_failed", "supplier", s.Supplier, "field", s.FieldName, "error", err)
			return
		}
		if err := c.repo.Trim(ctx, s.Supplier, s.FieldName, c.cap); err != nil {
			c.logger.Error("patterns.corpus.trim_failed", "supplier", s.Supplier, "field", s.FieldName, "error", err)
		}
	}
}

// Samples returns copies of the retained samples for (supplier, field).
func (c *SampleCorpus) Samples(ctx context.Context, supplier, field string) []entity.PatternSample {
	k := key{supplier, field}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byKey[k]; !ok {
		c.load(ctx, k)
	}
	out := make([]entity.PatternSample, len(c.byKey[k]))
	copy(out, c.byKey[k])
	return out
}
