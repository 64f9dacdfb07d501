package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"gorm.io/gorm"
)

type PlantStore struct {
	db  *gorm.DB
	now Clock
}

func NewPlantStore(db *gorm.DB) *PlantStore {
	return &PlantStore{db: db, now: utcNow}
}

func (s *PlantStore) WithClock(c Clock) *PlantStore {
	s.now = c
	return s
}

// List returns plants ordered by name.
func (s *PlantStore) List(ctx context.Context, activeOnly bool) ([]models.PlantConfiguration, error) {
	q := s.db.WithContext(ctx).Model(&models.PlantRecord{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var records []models.PlantRecord
	if err := q.Order("name ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]models.PlantConfiguration, 0, len(records))
	for _, rec := range records {
		var p models.PlantConfiguration
		if err := decodeDocument(rec.Document, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PlantStore) Get(ctx context.Context, id string) (models.PlantConfiguration, error) {
	var rec models.PlantRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return models.PlantConfiguration{}, notFound(err)
	}
	var p models.PlantConfiguration
	err := decodeDocument(rec.Document, &p)
	return p, err
}

// Save inserts or replaces a plant. CreatedAt survives replacement.
func (s *PlantStore) Save(ctx context.Context, p models.PlantConfiguration) (models.PlantConfiguration, error) {
	if p.ID == "" {
		p.ID = "plant_" + uuid.NewString()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		var existing models.PlantRecord
		err := tx.Select("created_at").First(&existing, "id = ?", p.ID).Error
		switch {
		case err == nil:
			p.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			p.CreatedAt = now
		default:
			return err
		}
		p.UpdatedAt = now

		doc, err := encodeDocument(p)
		if err != nil {
			return err
		}
		rec := models.PlantRecord{
			ID:        p.ID,
			Name:      p.DisplayName(),
			Code:      p.PlantCode,
			Country:   p.Location.Country,
			IsActive:  p.IsActive,
			Document:  doc,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		return tx.Save(&rec).Error
	})
	return p, err
}

func (s *PlantStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.PlantRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
