package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"gorm.io/gorm"
)

// TemplateFilter narrows a template listing; zero values match everything.
type TemplateFilter struct {
	Category string
	PlantID  string
	Active   *bool
	Search   string
}

type TemplateStore struct {
	db  *gorm.DB
	now Clock
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db, now: utcNow}
}

// WithClock overrides the timestamp source.
func (s *TemplateStore) WithClock(c Clock) *TemplateStore {
	s.now = c
	return s
}

// List returns matching templates, most recently updated first.
func (s *TemplateStore) List(ctx context.Context, f TemplateFilter) ([]models.Template, error) {
	q := s.db.WithContext(ctx).Model(&models.TemplateRecord{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.PlantID != "" {
		q = q.Where("plant_id = ?", f.PlantID)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	var records []models.TemplateRecord
	if err := q.Order("updated_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	out := make([]models.Template, 0, len(records))
	for _, rec := range records {
		var t models.Template
		if err := decodeDocument(rec.Document, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *TemplateStore) Get(ctx context.Context, id string) (models.Template, error) {
	var rec models.TemplateRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return models.Template{}, notFound(err)
	}
	var t models.Template
	err := decodeDocument(rec.Document, &t)
	return t, err
}

// Create stores a new template, assigning an id and timestamps.
func (s *TemplateStore) Create(ctx context.Context, t models.Template) (models.Template, error) {
	if t.ID == "" {
		t.ID = "tpl_" + uuid.NewString()
	}
	if t.Version == "" {
		t.Version = "1.0"
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	rec, err := templateRecord(t)
	if err != nil {
		return t, err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return t, err
	}
	return t, nil
}

// Update applies a partial update and returns the stored result.
func (s *TemplateStore) Update(ctx context.Context, id string, u models.TemplateUpdate) (models.Template, error) {
	var out models.Template
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.TemplateRecord
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := decodeDocument(rec.Document, &out); err != nil {
			return err
		}
		u.Apply(&out)
		out.ID = id
		out.UpdatedAt = s.now()

		next, err := templateRecord(out)
		if err != nil {
			return err
		}
		next.CreatedAt = rec.CreatedAt
		return tx.Save(&next).Error
	})
	return out, err
}

func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.TemplateRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func templateRecord(t models.Template) (models.TemplateRecord, error) {
	doc, err := encodeDocument(t)
	if err != nil {
		return models.TemplateRecord{}, err
	}
	return models.TemplateRecord{
		ID:        t.ID,
		Name:      t.Name,
		Category:  t.Category,
		PlantID:   t.PlantID,
		Version:   t.Version,
		IsActive:  t.IsActive,
		Document:  doc,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}, nil
}
