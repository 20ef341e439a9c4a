package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/internal/common"
	"github.com/joseph-ayodele/docufield/internal/entity"
)

type TemplateRepository interface {
	Upsert(ctx context.Context, t *entity.Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Template, error)
	List(ctx context.Context) ([]*entity.Template, error)
	UpsertFieldMapping(ctx context.Context, m entity.TemplateFieldMapping) error
	ListFieldMappings(ctx context.Context, templateID uuid.UUID) ([]entity.TemplateFieldMapping, error)
	ClearFieldMapping(ctx context.Context, templateID uuid.UUID, fieldName string) error
}

type templateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTemplateRepository(db *sql.DB, logger *slog.Logger) TemplateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &templateRepository{db: db, logger: logger}
}

func (r *templateRepository) Upsert(ctx context.Context, t *entity.Template) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, category, sheet_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			sheet_name = EXCLUDED.sheet_name,
			updated_at = EXCLUDED.updated_at`,
		t.ID.String(), t.Name, t.Category, t.SheetName, t.CreatedAt, t.UpdatedAt)
	return common.WrapError(err, "upsert template")
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Template, error) {
	var (
		t     entity.Template
		rawID string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, sheet_name, created_at, updated_at
		FROM templates WHERE id = $1`, id.String()).
		Scan(&rawID, &t.Name, &t.Category, &t.SheetName, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get template")
	}
	t.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, common.WrapError(err, "parse template id")
	}
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*entity.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, sheet_name, created_at, updated_at
		FROM templates ORDER BY name`)
	if err != nil {
		return nil, common.WrapError(err, "list templates")
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Template
	for rows.Next() {
		var (
			t     entity.Template
			rawID string
		)
		if err := rows.Scan(&rawID, &t.Name, &t.Category, &t.SheetName, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, common.WrapError(err, "parse template id")
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *templateRepository) UpsertFieldMapping(ctx context.Context, m entity.TemplateFieldMapping) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO template_field_mappings
			(template_id, field_name, target_location, location_type, description, required)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (template_id, field_name) DO UPDATE SET
			target_location = EXCLUDED.target_location,
			location_type = EXCLUDED.location_type,
			description = EXCLUDED.description,
			required = EXCLUDED.required`,
		m.TemplateID.String(), m.FieldName, m.TargetLocation, m.LocationType, m.Description, m.Required)
	return common.WrapError(err, "upsert field mapping")
}

func (r *templateRepository) ListFieldMappings(ctx context.Context, templateID uuid.UUID) ([]entity.TemplateFieldMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT template_id, field_name, target_location, location_type, description, required
		FROM template_field_mappings WHERE template_id = $1 ORDER BY field_name`, templateID.String())
	if err != nil {
		return nil, common.WrapError(err, "list field mappings")
	}
	defer func() { _ = rows.Close() }()

	var out []entity.TemplateFieldMapping
	for rows.Next() {
		var (
			m     entity.TemplateFieldMapping
			rawID string
		)
		if err := rows.Scan(&rawID, &m.FieldName, &m.TargetLocation, &m.LocationType, &m.Description, &m.Required); err != nil {
			return nil, err
		}
		m.TemplateID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, common.WrapError(err, "parse template id")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *templateRepository) ClearFieldMapping(ctx context.Context, templateID uuid.UUID, fieldName string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM template_field_mappings WHERE template_id = $1 AND field_name = $2`,
		templateID.String(), fieldName)
	return common.WrapError(err, "clear field mapping")
}
