package store

import (
	"context"

	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"gorm.io/gorm"
)

const labelInsertBatch = 100

// LabelStore is an append-only log of generated labels.
type LabelStore struct {
	db  *gorm.DB
	now Clock
}

func NewLabelStore(db *gorm.DB) *LabelStore {
	return &LabelStore{db: db, now: utcNow}
}

func (s *LabelStore) WithClock(c Clock) *LabelStore {
	s.now = c
	return s
}

// SaveLabels inserts labels in one transaction. Existing ids are an error;
// labels are never rewritten.
func (s *LabelStore) SaveLabels(ctx context.Context, items []models.GeneratedLabel) error {
	if len(items) == 0 {
		return nil
	}
	now := s.now()
	records := make([]models.LabelRecord, 0, len(items))
	for i, l := range items {
		doc, err := encodeDocument(l)
		if err != nil {
			return err
		}
		var code string
		if p, err := labels.DecodePayload(l.QRCodeData); err == nil {
			code = p.Traceability.TraceabilityCode
		}
		records = append(records, models.LabelRecord{
			ID:               l.ID,
			TemplateID:       l.TemplateID,
			PlantID:          l.PlantID,
			BatchID:          l.BatchID,
			TraceabilityCode: code,
			GeneratedBy:      l.Metadata.GeneratedBy,
			Timestamp:        l.Timestamp,
			Ordinal:          i,
			Document:         doc,
			CreatedAt:        now,
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&records, labelInsertBatch).Error
	})
}

func (s *LabelStore) Get(ctx context.Context, id string) (models.GeneratedLabel, error) {
	var rec models.LabelRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return models.GeneratedLabel{}, notFound(err)
	}
	var l models.GeneratedLabel
	err := decodeDocument(rec.Document, &l)
	return l, err
}

// ListByBatch returns a batch's labels in the order they were saved.
func (s *LabelStore) ListByBatch(ctx context.Context, batchID string) ([]models.GeneratedLabel, error) {
	return s.find(s.db.WithContext(ctx).Where("batch_id = ?", batchID))
}

// ListByIDs returns the labels found among ids; unknown ids are skipped.
func (s *LabelStore) ListByIDs(ctx context.Context, ids []string) ([]models.GeneratedLabel, error) {
	if len(ids) == 0 {
		return []models.GeneratedLabel{}, nil
	}
	return s.find(s.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindByTraceabilityCode returns the labels printed with code.
func (s *LabelStore) FindByTraceabilityCode(ctx context.Context, code string) ([]models.GeneratedLabel, error) {
	return s.find(s.db.WithContext(ctx).Where("traceability_code = ?", code))
}

// BatchExists reports whether any label already uses batchID.
func (s *LabelStore) BatchExists(ctx context.Context, batchID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.LabelRecord{}).Where("batch_id = ?", batchID).Limit(1).Count(&n).Error
	return n > 0, err
}

func (s *LabelStore) find(q *gorm.DB) ([]models.GeneratedLabel, error) {
	var records []models.LabelRecord
	if err := q.Order("created_at ASC, ordinal ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]models.GeneratedLabel, 0, len(records))
	for _, rec := range records {
		var l models.GeneratedLabel
		if err := decodeDocument(rec.Document, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
