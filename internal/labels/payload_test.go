package labels

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

func TestBuildPayloadDefaults(t *testing.T) {
	plant := testPlant()
	plant.PackagingSpecs = nil

	p := testCoder().BuildPayload(plant, nil, nil, "PCP_20240315_AAAA01", fixedNow)

	ts := "2024-03-15T10:30:00.000Z"
	millis := "1710498600000"
	want := models.CodePayload{
		PlantID:   "plant-001",
		PlantName: "Pacific Clam Processing",
		BatchID:   "PCP_20240315_AAAA01",
		Timestamp: ts,
		Station:   DefaultStation,
		Product:   models.ProductInfo{Type: "Clam", Weight: 0, Grade: "A", LotNumber: "LOT_" + millis},
		Processing: models.ProcessingInfo{
			Method:   "Freezing",
			Operator: "Unknown",
		},
		Quality: models.QualityInfo{Inspector: "QC001", CheckDate: ts, Status: "Approved"},
		Traceability: models.TraceabilityInfo{
			SourceLocation:   "40.802100,-124.163700",
			WeightNoteID:     "WN" + millis,
			ReceivalDate:     ts,
			Supplier:         "Unknown Supplier",
			TraceabilityCode: "PLA-20240315-AA01-001",
		},
		Approvals: models.ApprovalNumbers{
			HACCP:  "HACCP-123",
			Custom: map[string]string{"MSC": "MSC-55"},
		},
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPayloadFromInputs(t *testing.T) {
	form := map[string]interface{}{
		"productType":     "Geoduck",
		"weight":          "10",
		"grade":           "AA",
		"lotNumber":       "LOT-7",
		"operator":        "form-op",
		"temperature":     -18,
		"sequenceNumber":  12,
		"supplier":        "Bay Divers",
		"packagingSpecId": "B10",
	}
	station := map[string]interface{}{
		"stationId":        "st-1",
		"operator":         "station-op",
		"processingMethod": "IQF",
		"duration":         45.5,
	}

	p := testCoder().BuildPayload(testPlant(), form, station, "BATCH-0042", fixedNow)

	assert.Equal(t, "Geoduck", p.Product.Type)
	assert.Equal(t, 10.0, p.Product.Weight)
	assert.Equal(t, "st-1", p.Station)
	assert.Equal(t, "IQF", p.Processing.Method)
	assert.Equal(t, "station-op", p.Processing.Operator)
	require.NotNil(t, p.Processing.Temperature)
	assert.Equal(t, -18.0, *p.Processing.Temperature)
	require.NotNil(t, p.Processing.Duration)
	assert.Equal(t, 45.5, *p.Processing.Duration)
	assert.Equal(t, "Bay Divers", p.Traceability.Supplier)
	assert.Equal(t, "PLA-20240315-0042-012", p.Traceability.TraceabilityCode)

	require.NotNil(t, p.Packaging)
	assert.Equal(t, "box-10", p.Packaging.SpecID)
	assert.Equal(t, 10.45, p.Packaging.GrossWeight)
}

func TestBuildPayloadAddressLocation(t *testing.T) {
	plant := testPlant()
	plant.Location.Coordinates = nil
	plant.Location.State = ""

	p := testCoder().BuildPayload(plant, nil, nil, "B", fixedNow)
	assert.Equal(t, "Eureka, USA", p.Traceability.SourceLocation)
}

func TestBuildPayloadDatesCodeByTimestamp(t *testing.T) {
	c := NewCoder(ClockFunc(func() time.Time { return time.Date(2024, 5, 2, 0, 0, 1, 0, time.UTC) }), zeroRand{})
	ts := time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC)

	p := c.BuildPayload(testPlant(), nil, nil, "B1", ts)
	assert.Equal(t, "2024-05-01T23:59:59.000Z", p.Timestamp)
	assert.Equal(t, "PLA-20240501-B1-001", p.Traceability.TraceabilityCode)
}

func TestPayloadRoundTrip(t *testing.T) {
	form := map[string]interface{}{"temperature": 4.5, "weight": 2}
	p := testCoder().BuildPayload(testPlant(), form, nil, "PCP_20240315_RT0001", fixedNow)

	s, err := EncodePayload(p)
	require.NoError(t, err)
	back, err := DecodePayload(s)
	require.NoError(t, err)

	if diff := cmp.Diff(p, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadShapeOmitsInactiveApprovals(t *testing.T) {
	p := testCoder().BuildPayload(testPlant(), nil, nil, "B", fixedNow)
	s, err := EncodePayload(p)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	raw := map[string]map[string]interface{}{}
	for _, section := range []string{"processing", "approvals", "traceability"} {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(doc[section], &m))
		raw[section] = m
	}

	assert.Contains(t, raw["approvals"], "haccp")
	assert.NotContains(t, raw["approvals"], "fda")
	assert.NotContains(t, raw["approvals"], "halal")

	// unknown measurements keep their keys as null
	assert.Contains(t, raw["processing"], "temperature")
	assert.Nil(t, raw["processing"]["temperature"])
	assert.NotEmpty(t, raw["traceability"]["traceabilityCode"])
}

func TestActiveApprovalNumbersEmpty(t *testing.T) {
	out := ActiveApprovalNumbers(models.Approvals{
		Custom: []models.Approval{{Name: "X", Number: "1", Status: models.ApprovalSuspended}},
	})
	assert.Nil(t, out.Custom)
	assert.Empty(t, out.HACCP)
}
