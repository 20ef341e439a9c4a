package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

type RuleRepository interface {
	Upsert(ctx context.Context, rule *entity.MappingRule) error
	List(ctx context.Context) ([]*entity.MappingRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ruleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRuleRepository(db *sql.DB, logger *slog.Logger) RuleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ruleRepository{db: db, logger: logger}
}

func (r *ruleRepository) Upsert(ctx context.Context, rule *entity.MappingRule) error {
	conds, err := json.Marshal(rule.Conditions)
	if err != nil {
		return common.WrapError(err, "marshal conditions")
	}
	projs, err := json.Marshal(rule.Projections)
	if err != nil {
		return common.WrapError(err, "marshal projections")
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO mapping_rules
			(id, name, conditions, projections, priority, success_rate, usage_count,
			 is_active, last_used_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			conditions = EXCLUDED.conditions,
			projections = EXCLUDED.projections,
			priority = EXCLUDED.priority,
			success_rate = EXCLUDED.success_rate,
			usage_count = EXCLUDED.usage_count,
			is_active = EXCLUDED.is_active,
			last_used_at = EXCLUDED.last_used_at,
			updated_at = EXCLUDED.updated_at`,
		rule.ID.String(), rule.Name, string(conds), string(projs), rule.Priority,
		rule.SuccessRate, rule.UsageCount, rule.IsActive, rule.LastUsedAt,
		rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to upsert rule", "rule_id", rule.ID, "error", err)
		return common.WrapError(err, "upsert rule")
	}
	return nil
}

func (r *ruleRepository) List(ctx context.Context) ([]*entity.MappingRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, conditions, projections, priority, success_rate, usage_count,
		       is_active, last_used_at, created_at, updated_at
		FROM mapping_rules ORDER BY priority DESC, success_rate DESC`)
	if err != nil {
		return nil, common.WrapError(err, "list rules")
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.MappingRule
	for rows.Next() {
		var (
			rule        entity.MappingRule
			id          string
			conds, proj string
		)
		if err := rows.Scan(&id, &rule.Name, &conds, &proj, &rule.Priority,
			&rule.SuccessRate, &rule.UsageCount, &rule.IsActive, &rule.LastUsedAt,
			&rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rule.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, common.WrapError(err, "parse rule id")
		}
		if err := json.Unmarshal([]byte(conds), &rule.Conditions); err != nil {
			return nil, common.WrapError(err, "unmarshal conditions")
		}
		if err := json.Unmarshal([]byte(proj), &rule.Projections); err != nil {
			return nil, common.WrapError(err, "unmarshal projections")
		}
		out = append(out, &rule)
	}
	return out, rows.Err()
}

func (r *ruleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mapping_rules WHERE id = $1`, id.String())
	return common.WrapError(err, "delete rule")
}
