package labels

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/xelth-com/clamflow-labels/internal/logger"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoFields        = errors.New("template has no fields")
	ErrNoPlant         = errors.New("plant configuration is required")
	ErrInvalidQuantity = errors.New("invalid batch quantity")
	ErrQRCodeSize      = errors.New("qr code size out of range")
)

// MaxQRCodeSize bounds per-request image sizes, in pixels.
const MaxQRCodeSize = 2000

const (
	defaultQRSize       = 200
	defaultFieldWidth   = 100
	defaultFieldHeight  = 30
	defaultOperatorName = "System"
)

// CodeRenderer turns payload text into a scannable image URL.
type CodeRenderer interface {
	Render(ctx context.Context, data string, size int, background string) (string, error)
}

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	IncludeQRCode   *bool                  `json:"includeQRCode,omitempty"`
	QRCodeSize      int                    `json:"qrCodeSize,omitempty"`
	BackgroundColor string                 `json:"backgroundColor,omitempty"`
	CustomData      map[string]interface{} `json:"customData,omitempty"`
}

func (o GenerateOptions) wantsQRCode() bool {
	return o.IncludeQRCode == nil || *o.IncludeQRCode
}

func (o GenerateOptions) check() error {
	if o.QRCodeSize > MaxQRCodeSize {
		return fmt.Errorf("%w: %d (max %d)", ErrQRCodeSize, o.QRCodeSize, MaxQRCodeSize)
	}
	return nil
}

// BatchConfig describes a run of labels sharing one batch id.
type BatchConfig struct {
	BatchID        string                 `json:"batchId"`
	Quantity       int                    `json:"quantity"`
	StartNumber    int                    `json:"startNumber,omitempty"`
	SequenceFormat string                 `json:"sequenceFormat,omitempty"`
	CustomFields   map[string]interface{} `json:"customFields,omitempty"`
}

// Generator produces labels from templates and run-time data. It holds no
// per-call state and is safe for concurrent use.
type Generator struct {
	coder       *Coder
	resolver    *Resolver
	renderer    CodeRenderer
	log         *logger.Logger
	newID       func() string
	clock       Clock
	rand        RandomSource
	concurrency int
	maxQuantity int
	qrSize      int
	background  string
	dateLayout  string
	timeLayout  string
}

// Option configures a Generator.
type Option func(*Generator)

func WithClock(c Clock) Option               { return func(g *Generator) { g.clock = c } }
func WithRandom(r RandomSource) Option       { return func(g *Generator) { g.rand = r } }
func WithIDFunc(f func() string) Option      { return func(g *Generator) { g.newID = f } }
func WithConcurrency(n int) Option           { return func(g *Generator) { g.concurrency = n } }
func WithMaxQuantity(n int) Option           { return func(g *Generator) { g.maxQuantity = n } }
func WithQRDefaults(size int, bg string) Option {
	return func(g *Generator) { g.qrSize, g.background = size, bg }
}
func WithTimeLayouts(date, clock string) Option {
	return func(g *Generator) { g.dateLayout, g.timeLayout = date, clock }
}

// NewGenerator builds a generator. renderer may be nil, in which case
// labels carry no image URL.
func NewGenerator(renderer CodeRenderer, log *logger.Logger, opts ...Option) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	g := &Generator{
		renderer:    renderer,
		log:         log,
		newID:       func() string { return "label_" + uuid.NewString() },
		concurrency: 4,
		maxQuantity: 10000,
		qrSize:      defaultQRSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.concurrency < 1 {
		g.concurrency = 1
	}
	g.coder = NewCoder(g.clock, g.rand)
	g.resolver = NewResolver(g.coder, log, g.dateLayout, g.timeLayout)
	return g
}

// Coder exposes the generator's code builder.
func (g *Generator) Coder() *Coder { return g.coder }

// Resolver exposes the generator's field resolver.
func (g *Generator) Resolver() *Resolver { return g.resolver }

// Generate produces one label. Steps run in order: batch id, field values,
// code payload, then best-effort image rendering.
func (g *Generator) Generate(ctx context.Context, tpl models.Template, plant *models.PlantConfiguration, form, station map[string]interface{}, opts GenerateOptions) (*models.GeneratedLabel, error) {
	if plant == nil {
		return nil, ErrNoPlant
	}
	if len(tpl.Fields) == 0 {
		return nil, ErrNoFields
	}
	if err := opts.check(); err != nil {
		return nil, err
	}

	// 1. batch id, sequence and time are fixed once so the printed fields
	// and the payload describe the same label
	now := g.coder.Now()
	data := DataContext{Plant: plant, Form: form, Station: station, Custom: opts.CustomData, At: now}
	batchID, ok := data.FormString("batchId")
	if !ok {
		batchID, ok = data.StationString("batchId")
	}
	if !ok {
		batchID = g.coder.BatchID(plant.ID)
		data.Form = mergeMaps(form, map[string]interface{}{"batchId": batchID})
	}
	data.BatchID = batchID
	data.Sequence = formSequence(data.Form)

	// 2. fields
	fields := make([]models.GeneratedField, 0, len(tpl.Fields))
	for _, f := range tpl.Fields {
		fields = append(fields, g.generateField(f, data))
	}

	// 3. payload
	payload := g.coder.BuildPayload(plant, data.Form, station, batchID, now)
	qrData, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	// 4. image
	var qrURL string
	if opts.wantsQRCode() {
		qrURL = g.renderImage(ctx, qrData, opts)
	}

	operator := firstString("", data.formOr("operator"), data.stationOr("operator"))
	return &models.GeneratedLabel{
		ID:         g.newID(),
		TemplateID: tpl.ID,
		PlantID:    plant.ID,
		BatchID:    batchID,
		Timestamp:  FormatTimestamp(now),
		QRCodeData: qrData,
		QRCodeURL:  qrURL,
		Fields:     fields,
		Metadata: models.LabelMetadata{
			GeneratedBy:      firstString(defaultOperatorName, operator),
			Station:          firstString("", data.stationOr("stationId"), data.formOr("station")),
			ProcessingMethod: firstString("", data.stationOr("processingMethod"), data.formOr("processingMethod")),
			Operator:         operator,
		},
	}, nil
}

func (g *Generator) generateField(f models.Field, data DataContext) models.GeneratedField {
	w, h := f.Position.Width, f.Position.Height
	if w <= 0 {
		w = defaultFieldWidth
	}
	if h <= 0 {
		h = defaultFieldHeight
	}
	return models.GeneratedField{
		FieldID:    f.ID,
		Label:      f.Label,
		Value:      g.resolver.Resolve(f, data),
		Type:       f.Type,
		Position:   models.FieldPoint{X: f.Position.X, Y: f.Position.Y},
		Dimensions: models.FieldSize{Width: w, Height: h},
	}
}

// renderImage never fails the label: errors are logged and yield "".
func (g *Generator) renderImage(ctx context.Context, data string, opts GenerateOptions) string {
	if g.renderer == nil {
		return ""
	}
	size := opts.QRCodeSize
	if size <= 0 {
		size = g.qrSize
	}
	bg := opts.BackgroundColor
	if bg == "" {
		bg = g.background
	}
	url, err := g.renderer.Render(ctx, data, size, bg)
	if err != nil {
		g.log.Warn("qr image rendering failed", "error", err, "size", size)
		return ""
	}
	return url
}

// GenerateBatch produces cfg.Quantity labels sharing one batch id. Items are
// generated concurrently; the result is ordered by label number.
func (g *Generator) GenerateBatch(ctx context.Context, tpl models.Template, plant *models.PlantConfiguration, cfg BatchConfig, base, station map[string]interface{}, opts GenerateOptions) ([]*models.GeneratedLabel, error) {
	cfg, err := g.prepareBatch(plant, cfg)
	if err != nil {
		return nil, err
	}
	if len(tpl.Fields) == 0 {
		return nil, ErrNoFields
	}
	if err := opts.check(); err != nil {
		return nil, err
	}

	labels := make([]*models.GeneratedLabel, cfg.Quantity)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for i := 0; i < cfg.Quantity; i++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			label, err := g.Generate(egCtx, tpl, plant, batchItemForm(base, cfg, i), station, opts)
			if err != nil {
				return fmt.Errorf("label %d: %w", i+1, err)
			}
			labels[i] = label
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.log.Debug("batch generated", "batch_id", cfg.BatchID, "quantity", cfg.Quantity, "template_id", tpl.ID)
	return labels, nil
}

// BatchIterator yields batch labels one at a time, so a caller can stop a
// long batch by breaking out of the loop.
func (g *Generator) BatchIterator(ctx context.Context, tpl models.Template, plant *models.PlantConfiguration, cfg BatchConfig, base, station map[string]interface{}, opts GenerateOptions) iter.Seq2[*models.GeneratedLabel, error] {
	return func(yield func(*models.GeneratedLabel, error) bool) {
		cfg, err := g.prepareBatch(plant, cfg)
		if err != nil {
			yield(nil, err)
			return
		}
		for i := 0; i < cfg.Quantity; i++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			label, err := g.Generate(ctx, tpl, plant, batchItemForm(base, cfg, i), station, opts)
			if !yield(label, err) || err != nil {
				return
			}
		}
	}
}

func (g *Generator) prepareBatch(plant *models.PlantConfiguration, cfg BatchConfig) (BatchConfig, error) {
	if plant == nil {
		return cfg, ErrNoPlant
	}
	if cfg.Quantity < 0 || cfg.Quantity > g.maxQuantity {
		return cfg, fmt.Errorf("%w: %d (max %d)", ErrInvalidQuantity, cfg.Quantity, g.maxQuantity)
	}
	if err := CheckSequenceFormat(cfg.SequenceFormat); err != nil {
		return cfg, err
	}
	if cfg.StartNumber == 0 {
		cfg.StartNumber = 1
	}
	if cfg.BatchID == "" {
		cfg.BatchID = g.coder.BatchID(plant.ID)
	}
	return cfg, nil
}

// batchItemForm layers base form data, custom fields and the per-item
// sequence data for label i (zero-based).
func batchItemForm(base map[string]interface{}, cfg BatchConfig, i int) map[string]interface{} {
	seq := cfg.StartNumber + i
	return mergeMaps(base, cfg.CustomFields, map[string]interface{}{
		"batchId":        cfg.BatchID,
		"sequenceNumber": seq,
		"sequenceString": FormatSequence(seq, cfg.SequenceFormat),
		"labelNumber":    i + 1,
		"totalLabels":    cfg.Quantity,
	})
}
