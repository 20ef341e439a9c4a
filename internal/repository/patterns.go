package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

type PatternRepository interface {
	Upsert(ctx context.Context, p *entity.LearnedPattern) error
	List(ctx context.Context, supplier string) ([]*entity.LearnedPattern, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SampleRepository interface {
	Add(ctx context.Context, s entity.PatternSample) error
	List(ctx context.Context, supplier, fieldName string) ([]entity.PatternSample, error)
	Trim(ctx context.Context, supplier, fieldName string, keep int) error
}

type patternRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPatternRepository(db *sql.DB, logger *slog.Logger) PatternRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &patternRepository{db: db, logger: logger}
}

func (r *patternRepository) Upsert(ctx context.Context, p *entity.LearnedPattern) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO learned_patterns
			(id, supplier, field_name, pattern, priority, success_rate, usage_count,
			 is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (supplier, field_name, pattern) DO UPDATE SET
			priority = EXCLUDED.priority,
			success_rate = EXCLUDED.success_rate,
			usage_count = EXCLUDED.usage_count,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		p.ID.String(), p.Supplier, p.FieldName, p.Pattern, p.Priority, p.SuccessRate,
		p.UsageCount, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to upsert pattern", "supplier", p.Supplier, "field", p.FieldName, "error", err)
		return common.WrapError(err, "upsert pattern")
	}
	return nil
}

func (r *patternRepository) List(ctx context.Context, supplier string) ([]*entity.LearnedPattern, error) {
	var (
		rows *sql.Rows
		err  error
	)
	const cols = `id, supplier, field_name, pattern, priority, success_rate, usage_count, is_active, created_at, updated_at`
	if supplier == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+cols+` FROM learned_patterns ORDER BY supplier, field_name, priority DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+cols+` FROM learned_patterns WHERE supplier = $1 ORDER BY field_name, priority DESC`, supplier)
	}
	if err != nil {
		return nil, common.WrapError(err, "list patterns")
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.LearnedPattern
	for rows.Next() {
		var (
			p  entity.LearnedPattern
			id string
		)
		if err := rows.Scan(&id, &p.Supplier, &p.FieldName, &p.Pattern, &p.Priority,
			&p.SuccessRate, &p.UsageCount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, common.WrapError(err, "parse pattern id")
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *patternRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM learned_patterns WHERE id = $1`, id.String())
	return common.WrapError(err, "delete pattern")
}

type sampleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSampleRepository(db *sql.DB, logger *slog.Logger) SampleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sampleRepository{db: db, logger: logger}
}

func (r *sampleRepository) Add(ctx context.Context, s entity.PatternSample) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pattern_samples (id, supplier, field_name, text, expected_value, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.New().String(), s.Supplier, s.FieldName, s.Text, s.ExpectedValue, s.CreatedAt)
	return common.WrapError(err, "add sample")
}

func (r *sampleRepository) List(ctx context.Context, supplier, fieldName string) ([]entity.PatternSample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT supplier, field_name, text, expected_value, created_at
		FROM pattern_samples
		WHERE supplier = $1 AND field_name = $2
		ORDER BY created_at DESC`, supplier, fieldName)
	if err != nil {
		return nil, common.WrapError(err, "list samples")
	}
	defer func() { _ = rows.Close() }()

	var out []entity.PatternSample
	for rows.Next() {
		var s entity.PatternSample
		if err := rows.Scan(&s.Supplier, &s.FieldName, &s.Text, &s.ExpectedValue, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sampleRepository) Trim(ctx context.Context, supplier, fieldName string, keep int) error {
	// Delete everything older than the newest `keep` samples for the key.
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM pattern_samples
		WHERE supplier = $1 AND field_name = $2 AND id NOT IN (
			SELECT id FROM pattern_samples
			WHERE supplier = $1 AND field_name = $2
			ORDER BY created_at DESC LIMIT $3
		)`, supplier, fieldName, keep)
	return common.WrapError(err, "trim samples")
}
