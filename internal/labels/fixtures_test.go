package labels

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/xelth-com/clamflow-labels/internal/models"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() Clock {
	return ClockFunc(func() time.Time { return fixedNow })
}

// zeroRand always draws the first alphabet character
type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

func testCoder() *Coder {
	return NewCoder(fixedClock(), zeroRand{})
}

func testPlant() *models.PlantConfiguration {
	return &models.PlantConfiguration{
		ID:        "plant-001",
		PlantName: "Pacific Clam Processing",
		PlantCode: "PCP",
		Location: models.PlantLocation{
			Address: "12 Harbour Rd",
			City:    "Eureka",
			State:   "CA",
			Country: "USA",
			Coordinates: &models.Coordinates{
				Latitude:  40.8021,
				Longitude: -124.1637,
			},
		},
		ContactInfo: models.ContactInfo{Email: "qa@pcp.example"},
		Approvals: models.Approvals{
			HACCP: models.Approval{Number: "HACCP-123", Status: models.ApprovalActive, ExpiryDate: "2024-04-01"},
			FDA:   models.Approval{Number: "FDA-9", Status: models.ApprovalPending},
			Halal: models.Approval{Number: "HAL-7", Status: models.ApprovalExpired},
			Custom: []models.Approval{
				{Name: "MSC", Number: "MSC-55", Status: models.ApprovalActive, ExpiryDate: "2025-01-01"},
			},
		},
		ProcessingMethods: []models.ProcessingMethod{
			{ID: "pm-1", Name: "Blast Freezing", Code: "BF", Category: "freezing"},
		},
		Stations: []models.Station{
			{ID: "st-1", Name: "Packing 1", Code: "P1", Location: "Hall A"},
		},
		PackagingSpecs: []models.PackagingSpec{
			{ID: "box-10", Code: "B10", BoxType: "carton", TareWeight: 0.45, IsActive: true},
		},
		IsActive: true,
	}
}

func field(id string, t models.FieldType, src *models.DataSource) models.Field {
	return models.Field{
		ID:         id,
		Name:       id,
		Type:       t,
		Label:      id,
		Position:   models.Position{X: 10, Y: 10, Width: 120, Height: 30},
		DataSource: src,
	}
}

func testTemplate() models.Template {
	return models.Template{
		ID:       "tpl-1",
		Name:     "Export carton",
		Version:  "1.0",
		IsActive: true,
		Category: "export",
		Width:    400,
		Height:   300,
		Fields: []models.Field{
			field("product", models.FieldText, &models.DataSource{Kind: models.SourceForm, SourceKey: "productType"}),
			field("plant", models.FieldText, &models.DataSource{Kind: models.SourcePlant, SourceKey: "plantName"}),
			field("haccp", models.FieldText, &models.DataSource{Kind: models.SourceRegulation, SourceKey: "haccp"}),
			field("qr", models.FieldQR, &models.DataSource{Kind: models.SourceDynamic, SourceKey: DynamicQRData}),
		},
	}
}

// stubRenderer records calls and optionally fails
type stubRenderer struct {
	calls atomic.Int32
	fail  bool
}

func (s *stubRenderer) Render(_ context.Context, data string, size int, bg string) (string, error) {
	s.calls.Add(1)
	if s.fail {
		return "", errors.New("renderer offline")
	}
	return "data:image/png;base64,AAAA", nil
}
