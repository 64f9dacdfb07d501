package labels

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

// ExportFormat selects the serialization of an exported label.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatHTML ExportFormat = "html"
	FormatPDF  ExportFormat = "pdf"
	FormatPNG  ExportFormat = "png"
)

// ErrUnsupportedFormat is returned for formats that are recognised but not
// rendered.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ContentType is the MIME type for the format; unknown formats are JSON.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	}
	return "application/json"
}

const dataURIPrefix = "data:image/png;base64,"

// ExportLabel serializes a label. Unknown formats fall back to JSON.
func ExportLabel(label models.GeneratedLabel, format ExportFormat) ([]byte, error) {
	switch format {
	case FormatHTML:
		return exportHTML(label)
	case FormatPDF:
		return exportPDF(label)
	case FormatPNG:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return json.MarshalIndent(label, "", "  ")
}

var htmlLabel = template.Must(template.New("label").Funcs(template.FuncMap{
	"localTime": func(ts string) string {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return ts
		}
		return t.Format("1/2/2006, 3:04:05 PM")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <title>Label {{.Label.ID}}</title>
  <style>
    body { margin: 0; padding: 20px; font-family: Arial, sans-serif; }
    .label-container { position: relative; width: 400px; height: 300px; border: 2px solid #333; background: white; margin: 0 auto; }
    .label-info { margin-bottom: 20px; padding: 10px; background: #f5f5f5; border-radius: 4px; }
    .field { position: absolute; border: 1px solid #ddd; padding: 2px; font-size: 12px; display: flex; align-items: center; }
  </style>
</head>
<body>
  <div class="label-info">
    <h3>Label Information</h3>
    <p><strong>ID:</strong> {{.Label.ID}}</p>
    <p><strong>Plant:</strong> {{.Label.PlantID}}</p>
    <p><strong>Batch:</strong> {{.Label.BatchID}}</p>
    <p><strong>Generated:</strong> {{localTime .Label.Timestamp}}</p>
    <p><strong>Operator:</strong> {{.Label.Metadata.GeneratedBy}}</p>
  </div>
  <div class="label-container">
{{- range .Label.Fields}}
    <div class="field" style="left: {{.Position.X}}px; top: {{.Position.Y}}px; width: {{.Dimensions.Width}}px; height: {{.Dimensions.Height}}px;" title="{{.Label}}">{{.Value}}</div>
{{- end}}
{{- if .Image}}
    <img src="{{.Image}}" alt="QR Code" style="position: absolute; bottom: 10px; right: 10px; width: 80px; height: 80px;" />
{{- end}}
  </div>
  <div style="margin-top: 20px; padding: 10px; background: #f9f9f9; border-radius: 4px;">
    <h4>QR Code Data:</h4>
    <pre style="white-space: pre-wrap; font-size: 10px;">{{.Label.QRCodeData}}</pre>
  </div>
</body>
</html>
`))

func exportHTML(label models.GeneratedLabel) ([]byte, error) {
	// data URIs are rejected by the default URL filter
	var img template.URL
	for _, prefix := range []string{dataURIPrefix, "https://", "http://"} {
		if strings.HasPrefix(label.QRCodeURL, prefix) {
			img = template.URL(label.QRCodeURL)
			break
		}
	}

	var buf bytes.Buffer
	err := htmlLabel.Execute(&buf, struct {
		Label models.GeneratedLabel
		Image template.URL
	}{label, img})
	if err != nil {
		return nil, fmt.Errorf("render html label: %w", err)
	}
	return buf.Bytes(), nil
}

// canvas used when no field extends it.
const (
	canvasWidth  = 400.0
	canvasHeight = 300.0
	pdfQRSide    = 80.0
	pdfQRInset   = 10.0
)

func exportPDF(label models.GeneratedLabel) ([]byte, error) {
	w, h := canvasWidth, canvasHeight
	for _, f := range label.Fields {
		w = max(w, f.Position.X+f.Dimensions.Width)
		h = max(h, f.Position.Y+f.Dimensions.Height)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Label "+label.ID, true)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)
	pdf.SetDrawColor(221, 221, 221)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, f := range label.Fields {
		x, y := f.Position.X, f.Position.Y
		pdf.Rect(x, y, f.Dimensions.Width, f.Dimensions.Height, "D")
		pdf.SetXY(x+2, y)
		pdf.CellFormat(f.Dimensions.Width-4, f.Dimensions.Height, tr(f.Value), "", 0, "LM", false, 0, "")
	}

	if png, ok := decodeDataURI(label.QRCodeURL); ok {
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("qr", w-pdfQRSide-pdfQRInset, h-pdfQRSide-pdfQRInset, pdfQRSide, pdfQRSide, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf label: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeDataURI extracts PNG bytes from a base64 data URI.
func decodeDataURI(uri string) ([]byte, bool) {
	raw, ok := strings.CutPrefix(uri, dataURIPrefix)
	if !ok {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Timespan bounds a set of label timestamps.
type Timespan struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Statistics summarises a set of generated labels.
type Statistics struct {
	TotalLabels        int      `json:"totalLabels"`
	UniqueBatches      int      `json:"uniqueBatches"`
	PlantsInvolved     []string `json:"plantsInvolved"`
	GenerationTimespan Timespan `json:"generationTimespan"`
	OperatorsInvolved  []string `json:"operatorsInvolved"`
}

// GenerateStatistics summarises labels. Plant and operator lists keep first
// occurrence order; an empty input yields zero values and empty lists.
func GenerateStatistics(labels []models.GeneratedLabel) Statistics {
	stats := Statistics{
		TotalLabels:       len(labels),
		PlantsInvolved:    []string{},
		OperatorsInvolved: []string{},
	}
	if len(labels) == 0 {
		return stats
	}

	batches := make(map[string]struct{})
	plants := make(map[string]struct{})
	operators := make(map[string]struct{})
	timestamps := make([]string, 0, len(labels))

	for _, l := range labels {
		batches[l.BatchID] = struct{}{}
		if _, seen := plants[l.PlantID]; !seen {
			plants[l.PlantID] = struct{}{}
			stats.PlantsInvolved = append(stats.PlantsInvolved, l.PlantID)
		}
		if _, seen := operators[l.Metadata.GeneratedBy]; !seen {
			operators[l.Metadata.GeneratedBy] = struct{}{}
			stats.OperatorsInvolved = append(stats.OperatorsInvolved, l.Metadata.GeneratedBy)
		}
		timestamps = append(timestamps, l.Timestamp)
	}

	// fixed-width ISO timestamps sort chronologically as strings
	sort.Strings(timestamps)
	stats.UniqueBatches = len(batches)
	stats.GenerationTimespan = Timespan{Start: timestamps[0], End: timestamps[len(timestamps)-1]}
	return stats
}
