package labels

import (
	"strconv"

	"github.com/xelth-com/clamflow-labels/internal/logger"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

// Dynamic source keys understood by the resolver.
const (
	DynamicTimestamp        = "timestamp"
	DynamicDate             = "date"
	DynamicTime             = "time"
	DynamicBatchID          = "batch_id"
	DynamicSequenceNumber   = "sequence_number"
	DynamicTraceabilityCode = "traceability_code"
	DynamicQRData           = "qr_data"
)

// Resolver turns a field definition plus a data context into display text.
// It never fails: every miss degrades to the field's fallback.
type Resolver struct {
	coder      *Coder
	log        *logger.Logger
	dateLayout string
	timeLayout string
}

// NewResolver builds a resolver. Empty layouts default to US locale forms.
func NewResolver(coder *Coder, log *logger.Logger, dateLayout, timeLayout string) *Resolver {
	if coder == nil {
		coder = NewCoder(nil, nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	if dateLayout == "" {
		dateLayout = "1/2/2006"
	}
	if timeLayout == "" {
		timeLayout = "3:04:05 PM"
	}
	return &Resolver{coder: coder, log: log, dateLayout: dateLayout, timeLayout: timeLayout}
}

// Resolve produces the display string for field under ctx.
func (r *Resolver) Resolve(field models.Field, ctx DataContext) string {
	src := field.DataSource
	if src == nil {
		return field.DefaultValue
	}

	switch src.Kind {
	case models.SourceStatic:
		return field.DefaultValue

	case models.SourceForm:
		if v, ok := ctx.FormString(src.SourceKey); ok && src.SourceKey != "" {
			return v
		}
		return fallback(field)

	case models.SourcePlant:
		if v, ok := ctx.Plant.Lookup(src.SourceKey); ok && src.SourceKey != "" {
			return v
		}
		return fallback(field)

	case models.SourceRegulation:
		if ctx.Plant != nil {
			if a, ok := ctx.Plant.Approvals.ByKey(src.SourceKey); ok && a.Number != "" {
				return a.Number
			}
		}
		return fallback(field)

	case models.SourceCalculated:
		if src.Formula == "" {
			return fallback(field)
		}
		out, err := EvaluateFormula(src.Formula, ctx)
		if err != nil {
			r.log.Debug("formula evaluation failed", "field", field.ID, "formula", src.Formula, "error", err)
		}
		return out

	case models.SourceDynamic:
		if v, ok := r.dynamic(src.SourceKey, ctx); ok {
			return v
		}
		return fallback(field)

	case models.SourceDirect:
		if v, ok := ctx.LookupString(src.SourceKey); ok {
			return v
		}
		return fallback(field)
	}

	return field.DefaultValue
}

func (r *Resolver) dynamic(key string, ctx DataContext) (string, bool) {
	now := ctx.At
	if now.IsZero() {
		now = r.coder.Now()
	}
	plantID := ""
	if ctx.Plant != nil {
		plantID = ctx.Plant.ID
	}

	switch key {
	case DynamicTimestamp:
		return FormatTimestamp(now), true
	case DynamicDate:
		return now.Format(r.dateLayout), true
	case DynamicTime:
		return now.Format(r.timeLayout), true
	case DynamicBatchID:
		if id := batchFrom(ctx); id != "" {
			return id, true
		}
		return r.coder.BatchID(plantID), true
	case DynamicSequenceNumber:
		return strconv.Itoa(sequenceFrom(ctx)), true
	case DynamicTraceabilityCode:
		return TraceabilityCodeAt(plantID, batchFrom(ctx), sequenceFrom(ctx), now), true
	case DynamicQRData:
		form := mergeMaps(ctx.Form, ctx.Station, ctx.Custom)
		if ctx.Sequence > 0 {
			form["sequenceNumber"] = ctx.Sequence
		}
		payload := r.coder.BuildPayload(ctx.Plant, form, ctx.Station, batchFrom(ctx), now)
		s, err := EncodePayload(payload)
		if err != nil {
			r.log.Warn("qr data encoding failed", "error", err)
			return "", false
		}
		return s, true
	}
	return "", false
}

func batchFrom(ctx DataContext) string {
	if ctx.BatchID != "" {
		return ctx.BatchID
	}
	id, _ := ctx.LookupString("batchId")
	return id
}

func sequenceFrom(ctx DataContext) int {
	if ctx.Sequence > 0 {
		return ctx.Sequence
	}
	if v, ok := ctx.Lookup("sequenceNumber"); ok {
		if n, ok := toInt(v); ok && n > 0 {
			return n
		}
	}
	return 1
}

// fallback is the data source's fallback value, then the field default.
func fallback(field models.Field) string {
	if field.DataSource != nil && field.DataSource.FallbackValue != "" {
		return field.DataSource.FallbackValue
	}
	return field.DefaultValue
}
