package labels

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

// TimestampLayout is the ISO-8601 layout used for label timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Payload defaults applied when input data is missing.
const (
	DefaultProductType   = "Clam"
	DefaultGrade         = "A"
	DefaultMethod        = "Freezing"
	DefaultOperator      = "Unknown"
	DefaultStation       = "Unknown"
	DefaultInspector     = "QC001"
	DefaultQualityStatus = "Approved"
	DefaultSupplier      = "Unknown Supplier"
)

// FormatTimestamp renders t as an ISO-8601 UTC string with milliseconds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// BuildPayload assembles the provenance record for one label. Every section
// is populated, falling back to defaults, so scanners always see the same
// shape. Approvals are included only while their status is active.
func (c *Coder) BuildPayload(plant *models.PlantConfiguration, form, station map[string]interface{}, batchID string, ts time.Time) models.CodePayload {
	if plant == nil {
		plant = &models.PlantConfiguration{}
	}
	timestamp := FormatTimestamp(ts)
	millis := strconv.FormatInt(ts.UnixMilli(), 10)
	data := DataContext{Plant: plant, Form: form, Station: station}

	weight := 0.0
	if v, ok := lookupPath(form, "weight"); ok {
		if f, ok := toFloat(v); ok {
			weight = f
		}
	}
	sequence := formSequence(form)

	p := models.CodePayload{
		PlantID:   plant.ID,
		PlantName: plant.DisplayName(),
		BatchID:   batchID,
		Timestamp: timestamp,
		Station:   firstString(DefaultStation, data.stationOr("stationId"), data.formOr("station")),
		Product: models.ProductInfo{
			Type:      firstString(DefaultProductType, data.formOr("productType")),
			Weight:    weight,
			Grade:     firstString(DefaultGrade, data.formOr("grade")),
			LotNumber: firstString("LOT_"+millis, data.formOr("lotNumber")),
		},
		Processing: models.ProcessingInfo{
			Method:      firstString(DefaultMethod, data.stationOr("processingMethod"), data.formOr("processingMethod")),
			Temperature: firstNumber(station, form, "temperature"),
			Duration:    firstNumber(station, form, "duration"),
			Operator:    firstString(DefaultOperator, data.stationOr("operator"), data.formOr("operator")),
		},
		Quality: models.QualityInfo{
			Inspector: firstString(DefaultInspector, data.formOr("inspector")),
			CheckDate: firstString(timestamp, data.formOr("checkDate")),
			Status:    firstString(DefaultQualityStatus, data.formOr("qualityStatus")),
			Notes:     firstString("", data.formOr("qualityNotes")),
		},
		Traceability: models.TraceabilityInfo{
			SourceLocation:   sourceLocation(plant.Location),
			WeightNoteID:     firstString("WN"+millis, data.formOr("weightNoteId")),
			ReceivalDate:     firstString(timestamp, data.formOr("receivalDate")),
			Supplier:         firstString(DefaultSupplier, data.formOr("supplier")),
			TraceabilityCode: TraceabilityCodeAt(plant.ID, batchID, sequence, ts),
		},
		Approvals: ActiveApprovalNumbers(plant.Approvals),
	}

	specID := firstString(plant.DefaultPackaging, data.formOr("packagingSpecId"))
	if spec, ok := plant.PackagingSpecByID(specID); ok {
		gross := decimal.NewFromFloat(weight).Add(decimal.NewFromFloat(spec.TareWeight))
		p.Packaging = &models.PackagingInfo{
			SpecID:      spec.ID,
			Type:        spec.BoxType,
			TareWeight:  spec.TareWeight,
			GrossWeight: gross.InexactFloat64(),
		}
	}

	return p
}

// formSequence is the form's sequenceNumber, or 1 when missing or not
// positive.
func formSequence(form map[string]interface{}) int {
	if v, ok := lookupPath(form, "sequenceNumber"); ok {
		if n, ok := toInt(v); ok && n > 0 {
			return n
		}
	}
	return 1
}

// EncodePayload serializes a payload into the string stored in a QR code.
func EncodePayload(p models.CodePayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

// DecodePayload parses a QR code string back into a payload.
func DecodePayload(data string) (models.CodePayload, error) {
	var p models.CodePayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return models.CodePayload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// ActiveApprovalNumbers projects the certificate numbers of active approvals.
// Pending, expired and suspended approvals are left out.
func ActiveApprovalNumbers(a models.Approvals) models.ApprovalNumbers {
	pick := func(ap models.Approval) string {
		if ap.IsActive() {
			return ap.Number
		}
		return ""
	}
	out := models.ApprovalNumbers{
		HACCP:    pick(a.HACCP),
		FDA:      pick(a.FDA),
		ISO22000: pick(a.ISO22000),
		Halal:    pick(a.Halal),
		Organic:  pick(a.Organic),
	}
	for _, custom := range a.Custom {
		if !custom.IsActive() || custom.Name == "" || custom.Number == "" {
			continue
		}
		if out.Custom == nil {
			out.Custom = make(map[string]string)
		}
		out.Custom[custom.Name] = custom.Number
	}
	return out
}

func sourceLocation(loc models.PlantLocation) string {
	if loc.Coordinates != nil {
		return fmt.Sprintf("%.6f,%.6f", loc.Coordinates.Latitude, loc.Coordinates.Longitude)
	}
	parts := make([]string, 0, 3)
	for _, s := range []string{loc.City, loc.State, loc.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func (c DataContext) formOr(key string) string {
	s, _ := c.FormString(key)
	return s
}

func (c DataContext) stationOr(key string) string {
	s, _ := c.StationString(key)
	return s
}

// firstString returns the first non-empty candidate, or def.
func firstString(def string, candidates ...string) string {
	for _, s := range candidates {
		if s != "" {
			return s
		}
	}
	return def
}

func firstNumber(station, form map[string]interface{}, key string) *float64 {
	for _, m := range []map[string]interface{}{station, form} {
		if v, ok := lookupPath(m, key); ok {
			if f, ok := toFloat(v); ok {
				return &f
			}
		}
	}
	return nil
}
