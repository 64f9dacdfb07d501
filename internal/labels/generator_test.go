package labels

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

func newTestGenerator(r CodeRenderer, opts ...Option) *Generator {
	opts = append([]Option{WithClock(fixedClock()), WithRandom(zeroRand{})}, opts...)
	return NewGenerator(r, nil, opts...)
}

func TestGenerate(t *testing.T) {
	renderer := &stubRenderer{}
	gen := newTestGenerator(renderer, WithIDFunc(func() string { return "label_fixed" }))

	form := map[string]interface{}{"productType": "Geoduck", "operator": "ana"}
	station := map[string]interface{}{"stationId": "st-1", "processingMethod": "IQF"}

	label, err := gen.Generate(context.Background(), testTemplate(), testPlant(), form, station, GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "label_fixed", label.ID)
	assert.Equal(t, "tpl-1", label.TemplateID)
	assert.Equal(t, "plant-001", label.PlantID)
	assert.Equal(t, "PLA_20240315_000000", label.BatchID)
	assert.Equal(t, "2024-03-15T10:30:00.000Z", label.Timestamp)
	assert.Equal(t, "data:image/png;base64,AAAA", label.QRCodeURL)
	assert.EqualValues(t, 1, renderer.calls.Load())

	require.Len(t, label.Fields, 4)
	assert.Equal(t, "Geoduck", label.Fields[0].Value)
	assert.Equal(t, "Pacific Clam Processing", label.Fields[1].Value)
	assert.Equal(t, "HACCP-123", label.Fields[2].Value)
	assert.Equal(t, models.FieldPoint{X: 10, Y: 10}, label.Fields[0].Position)
	assert.Equal(t, models.FieldSize{Width: 120, Height: 30}, label.Fields[0].Dimensions)

	assert.Equal(t, models.LabelMetadata{
		GeneratedBy:      "ana",
		Station:          "st-1",
		ProcessingMethod: "IQF",
		Operator:         "ana",
	}, label.Metadata)

	// the generated batch id flows into the payload and the qr field
	p, err := DecodePayload(label.QRCodeData)
	require.NoError(t, err)
	assert.Equal(t, label.BatchID, p.BatchID)
	assert.Equal(t, "PLA-20240315-0000-001", p.Traceability.TraceabilityCode)
	qr, err := DecodePayload(label.Fields[3].Value)
	require.NoError(t, err)
	assert.Equal(t, label.BatchID, qr.BatchID)
}

func TestGenerateBatchIDPrecedence(t *testing.T) {
	gen := newTestGenerator(nil)
	ctx := context.Background()

	l, err := gen.Generate(ctx, testTemplate(), testPlant(), map[string]interface{}{"batchId": "FORM-1"}, map[string]interface{}{"batchId": "ST-1"}, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "FORM-1", l.BatchID)

	l, err = gen.Generate(ctx, testTemplate(), testPlant(), nil, map[string]interface{}{"batchId": "ST-1"}, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ST-1", l.BatchID)
	assert.Equal(t, "System", l.Metadata.GeneratedBy)
	assert.Empty(t, l.QRCodeURL)
}

func TestGenerateRendererFailureIsNotFatal(t *testing.T) {
	gen := newTestGenerator(&stubRenderer{fail: true})
	label, err := gen.Generate(context.Background(), testTemplate(), testPlant(), nil, nil, GenerateOptions{})
	require.NoError(t, err)
	assert.Empty(t, label.QRCodeURL)
	assert.NotEmpty(t, label.QRCodeData)
}

func TestGenerateSkipsImage(t *testing.T) {
	renderer := &stubRenderer{}
	include := false
	gen := newTestGenerator(renderer)
	_, err := gen.Generate(context.Background(), testTemplate(), testPlant(), nil, nil, GenerateOptions{IncludeQRCode: &include})
	require.NoError(t, err)
	assert.Zero(t, renderer.calls.Load())
}

func TestGenerateErrors(t *testing.T) {
	gen := newTestGenerator(nil)
	ctx := context.Background()

	_, err := gen.Generate(ctx, testTemplate(), nil, nil, nil, GenerateOptions{})
	assert.ErrorIs(t, err, ErrNoPlant)

	empty := testTemplate()
	empty.Fields = nil
	_, err = gen.Generate(ctx, empty, testPlant(), nil, nil, GenerateOptions{})
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestGenerateFieldDefaults(t *testing.T) {
	tpl := testTemplate()
	tpl.Fields[0].Position.Width = 0
	tpl.Fields[0].Position.Height = 0

	label, err := newTestGenerator(nil).Generate(context.Background(), tpl, testPlant(), nil, nil, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.FieldSize{Width: 100, Height: 30}, label.Fields[0].Dimensions)
}

func batchTemplate() models.Template {
	tpl := testTemplate()
	tpl.Fields = append(tpl.Fields,
		field("labelNumber", models.FieldNumber, &models.DataSource{Kind: models.SourceForm, SourceKey: "labelNumber"}),
		field("seq", models.FieldText, &models.DataSource{Kind: models.SourceForm, SourceKey: "sequenceString"}),
		field("trace", models.FieldText, &models.DataSource{Kind: models.SourceDynamic, SourceKey: DynamicTraceabilityCode}),
		field("lot", models.FieldText, &models.DataSource{Kind: models.SourceForm, SourceKey: "lot"}),
	)
	return tpl
}

func TestGenerateBatch(t *testing.T) {
	gen := newTestGenerator(&stubRenderer{}, WithConcurrency(3))
	cfg := BatchConfig{
		BatchID:        "PCP_20240315_BATCH1",
		Quantity:       5,
		StartNumber:    10,
		SequenceFormat: "BOX-{seq:4}",
		CustomFields:   map[string]interface{}{"lot": "L-77"},
	}
	base := map[string]interface{}{"productType": "Geoduck", "lot": "base-lot"}

	out, err := gen.GenerateBatch(context.Background(), batchTemplate(), testPlant(), cfg, base, nil, GenerateOptions{})
	require.NoError(t, err)
	require.Len(t, out, 5)

	ids := map[string]bool{}
	for i, l := range out {
		assert.Equal(t, cfg.BatchID, l.BatchID)
		assert.Equal(t, fmt.Sprint(i+1), l.Fields[4].Value, "labelNumber")
		assert.Equal(t, fmt.Sprintf("BOX-%04d", 10+i), l.Fields[5].Value)
		assert.Equal(t, fmt.Sprintf("PLA-20240315-TCH1-%03d", 10+i), l.Fields[6].Value)
		assert.Equal(t, "L-77", l.Fields[7].Value)

		p, err := DecodePayload(l.QRCodeData)
		require.NoError(t, err)
		assert.Equal(t, l.Fields[6].Value, p.Traceability.TraceabilityCode)

		assert.False(t, ids[l.ID], "duplicate label id %s", l.ID)
		ids[l.ID] = true
	}

	// base data is not mutated by per-item layering
	assert.Equal(t, "base-lot", base["lot"])
	assert.NotContains(t, base, "sequenceNumber")
}

func TestGenerateBatchDefaults(t *testing.T) {
	gen := newTestGenerator(nil)
	out, err := gen.GenerateBatch(context.Background(), batchTemplate(), testPlant(), BatchConfig{Quantity: 2}, nil, nil, GenerateOptions{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "PLA_20240315_000000", out[0].BatchID)
	assert.Equal(t, out[0].BatchID, out[1].BatchID)
	assert.Equal(t, "1", out[0].Fields[5].Value)
	assert.Equal(t, "2", out[1].Fields[5].Value)
}

func TestGenerateBatchQuantity(t *testing.T) {
	gen := newTestGenerator(nil, WithMaxQuantity(10))
	ctx := context.Background()

	out, err := gen.GenerateBatch(ctx, batchTemplate(), testPlant(), BatchConfig{Quantity: 0}, nil, nil, GenerateOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = gen.GenerateBatch(ctx, batchTemplate(), testPlant(), BatchConfig{Quantity: -1}, nil, nil, GenerateOptions{})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = gen.GenerateBatch(ctx, batchTemplate(), testPlant(), BatchConfig{Quantity: 11}, nil, nil, GenerateOptions{})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGenerateBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGenerator(nil).GenerateBatch(ctx, batchTemplate(), testPlant(), BatchConfig{Quantity: 3}, nil, nil, GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchIterator(t *testing.T) {
	gen := newTestGenerator(nil)
	cfg := BatchConfig{BatchID: "B-1", Quantity: 100}

	var seen []string
	for label, err := range gen.BatchIterator(context.Background(), batchTemplate(), testPlant(), cfg, nil, nil, GenerateOptions{}) {
		require.NoError(t, err)
		seen = append(seen, label.Fields[4].Value)
		if len(seen) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2", "3"}, seen)

	for _, err := range gen.BatchIterator(context.Background(), batchTemplate(), testPlant(), BatchConfig{Quantity: -5}, nil, nil, GenerateOptions{}) {
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestGenerateUsesOneInstant(t *testing.T) {
	var reads atomic.Int32
	clock := ClockFunc(func() time.Time {
		if reads.Add(1) == 1 {
			return time.Date(2024, 5, 1, 23, 59, 59, 999e6, time.UTC)
		}
		return time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	})
	gen := NewGenerator(nil, nil, WithClock(clock), WithRandom(zeroRand{}))

	label, err := gen.Generate(context.Background(), batchTemplate(), testPlant(), map[string]interface{}{"batchId": "B1"}, nil, GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01T23:59:59.999Z", label.Timestamp)
	p, err := DecodePayload(label.QRCodeData)
	require.NoError(t, err)
	assert.Equal(t, "PLA-20240501-B1-001", p.Traceability.TraceabilityCode)
	assert.Equal(t, p.Traceability.TraceabilityCode, label.Fields[6].Value)
}

func TestGenerateBatchIgnoresStationBatchID(t *testing.T) {
	tpl := batchTemplate()
	tpl.Fields = append(tpl.Fields, field("batch", models.FieldText, &models.DataSource{Kind: models.SourceDynamic, SourceKey: DynamicBatchID}))
	station := map[string]interface{}{"batchId": "LINE-ZZZZ", "sequenceNumber": 99}

	out, err := newTestGenerator(nil).GenerateBatch(context.Background(), tpl, testPlant(), BatchConfig{BatchID: "RUN-AAAA", Quantity: 2}, nil, station, GenerateOptions{})
	require.NoError(t, err)
	require.Len(t, out, 2)

	for i, l := range out {
		p, err := DecodePayload(l.QRCodeData)
		require.NoError(t, err)
		want := fmt.Sprintf("PLA-20240315-AAAA-%03d", i+1)

		assert.Equal(t, "RUN-AAAA", l.BatchID)
		assert.Equal(t, "RUN-AAAA", p.BatchID)
		assert.Equal(t, "RUN-AAAA", l.Fields[8].Value)
		assert.Equal(t, want, p.Traceability.TraceabilityCode)
		assert.Equal(t, want, l.Fields[6].Value)
	}
}

func TestGenerateRejectsUnboundedInputs(t *testing.T) {
	gen := newTestGenerator(&stubRenderer{})
	ctx := context.Background()

	_, err := gen.Generate(ctx, testTemplate(), testPlant(), nil, nil, GenerateOptions{QRCodeSize: MaxQRCodeSize + 1})
	assert.ErrorIs(t, err, ErrQRCodeSize)

	_, err = gen.GenerateBatch(ctx, batchTemplate(), testPlant(), BatchConfig{Quantity: 2}, nil, nil, GenerateOptions{QRCodeSize: 50000})
	assert.ErrorIs(t, err, ErrQRCodeSize)

	_, err = gen.GenerateBatch(ctx, batchTemplate(), testPlant(), BatchConfig{Quantity: 2, SequenceFormat: "{seq:20000000}"}, nil, nil, GenerateOptions{})
	assert.ErrorIs(t, err, ErrSequenceFormat)
}
