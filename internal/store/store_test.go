package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/clamflow-labels/internal/database"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// tickClock advances one second per call
func tickClock() Clock {
	t := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func tpl(name, category string, active bool) models.Template {
	return models.Template{
		Name:     name,
		Category: category,
		IsActive: active,
		Fields: []models.Field{{
			ID: "f1", Name: "f1", Type: models.FieldText, Label: "F1",
			Position:   models.Position{Width: 10, Height: 10},
			DataSource: &models.DataSource{Kind: models.SourceDirect, SourceKey: "productType"},
		}},
	}
}

func TestTemplateStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t)).WithClock(tickClock())

	created, err := s.Create(ctx, tpl("Export carton", "export", true))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.ID, "tpl_"))
	assert.Equal(t, "1.0", created.Version)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, models.SourceDirect, got.Fields[0].DataSource.Kind)

	name := "Export carton v2"
	inactive := false
	updated, err := s.Update(ctx, created.ID, models.TemplateUpdate{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "export", updated.Category)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	got, err = s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, created.ID), ErrNotFound)
	_, err = s.Update(ctx, created.ID, models.TemplateUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(newTestDB(t)).WithClock(tickClock())

	for _, in := range []models.Template{
		tpl("Export carton", "export", true),
		tpl("Retail pouch", "retail", true),
		tpl("Old export", "export", false),
	} {
		_, err := s.Create(ctx, in)
		require.NoError(t, err)
	}

	names := func(f TemplateFilter) []string {
		list, err := s.List(ctx, f)
		require.NoError(t, err)
		out := []string{}
		for _, item := range list {
			out = append(out, item.Name)
		}
		return out
	}

	active, inactive := true, false
	assert.Equal(t, []string{"Old export", "Retail pouch", "Export carton"}, names(TemplateFilter{}))
	assert.Equal(t, []string{"Old export", "Export carton"}, names(TemplateFilter{Category: "export"}))
	assert.Equal(t, []string{"Export carton"}, names(TemplateFilter{Category: "export", Active: &active}))
	assert.Equal(t, []string{"Old export"}, names(TemplateFilter{Active: &inactive}))
	assert.Equal(t, []string{"Old export", "Export carton"}, names(TemplateFilter{Search: "EXPORT"}))
	assert.Empty(t, names(TemplateFilter{PlantID: "nope"}))
}

func TestPlantStore(t *testing.T) {
	ctx := context.Background()
	s := NewPlantStore(newTestDB(t)).WithClock(tickClock())

	bay, err := s.Save(ctx, models.PlantConfiguration{PlantName: "Bay Shellfish", PlantCode: "BAY", IsActive: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bay.ID, "plant_"))

	_, err = s.Save(ctx, models.PlantConfiguration{ID: "plant-a", PlantName: "Arcadia Clams", PlantCode: "ARC"})
	require.NoError(t, err)

	all, err := s.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Arcadia Clams", all[0].PlantName)

	active, err := s.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, bay.ID, active[0].ID)

	bay.PlantName = "Bay Shellfish Co"
	again, err := s.Save(ctx, bay)
	require.NoError(t, err)
	assert.True(t, again.CreatedAt.Equal(bay.CreatedAt))
	assert.True(t, again.UpdatedAt.After(bay.UpdatedAt))

	got, err := s.Get(ctx, bay.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bay Shellfish Co", got.PlantName)

	require.NoError(t, s.Delete(ctx, bay.ID))
	_, err = s.Get(ctx, bay.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, bay.ID), ErrNotFound)
}

func label(id, batch, code string) models.GeneratedLabel {
	return models.GeneratedLabel{
		ID:         id,
		TemplateID: "tpl-1",
		PlantID:    "plant-1",
		BatchID:    batch,
		Timestamp:  "2024-03-15T10:30:00.000Z",
		QRCodeData: fmt.Sprintf(`{"traceability":{"traceabilityCode":%q}}`, code),
		Fields:     []models.GeneratedField{{FieldID: "f1", Value: id}},
		Metadata:   models.LabelMetadata{GeneratedBy: "ana"},
	}
}

func TestLabelStore(t *testing.T) {
	ctx := context.Background()
	s := NewLabelStore(newTestDB(t)).WithClock(tickClock())

	// ids deliberately out of lexical order
	first := []models.GeneratedLabel{
		label("label_c", "B1", "PLA-20240315-00B1-001"),
		label("label_a", "B1", "PLA-20240315-00B1-002"),
		label("label_b", "B1", "PLA-20240315-00B1-003"),
	}
	require.NoError(t, s.SaveLabels(ctx, first))
	require.NoError(t, s.SaveLabels(ctx, []models.GeneratedLabel{label("label_0", "B1", "PLA-20240315-00B1-004")}))
	require.NoError(t, s.SaveLabels(ctx, nil))

	batch, err := s.ListByBatch(ctx, "B1")
	require.NoError(t, err)
	ids := []string{}
	for _, l := range batch {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"label_c", "label_a", "label_b", "label_0"}, ids)
	assert.Equal(t, first[0], batch[0])

	got, err := s.Get(ctx, "label_a")
	require.NoError(t, err)
	assert.Equal(t, first[1], got)
	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	some, err := s.ListByIDs(ctx, []string{"label_b", "missing"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "label_b", some[0].ID)

	none, err := s.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	traced, err := s.FindByTraceabilityCode(ctx, "PLA-20240315-00B1-002")
	require.NoError(t, err)
	require.Len(t, traced, 1)
	assert.Equal(t, "label_a", traced[0].ID)

	ok, err := s.BatchExists(ctx, "B1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.BatchExists(ctx, "B2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLabelStoreIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewLabelStore(newTestDB(t))

	require.NoError(t, s.SaveLabels(ctx, []models.GeneratedLabel{label("label_x", "B1", "")}))
	err := s.SaveLabels(ctx, []models.GeneratedLabel{label("label_y", "B1", ""), label("label_x", "B9", "")})
	assert.Error(t, err)

	// the failed call is rolled back as a whole
	_, err = s.Get(ctx, "label_y")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.Get(ctx, "label_x")
	require.NoError(t, err)
	assert.Equal(t, "B1", got.BatchID)
}
