package printer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

var (
	ErrEmptySheet  = errors.New("no labels to print")
	ErrSheetLayout = errors.New("invalid sheet layout")
)

// MaxGridSide bounds both the column and the row count.
const MaxGridSide = 20

// SheetConfig describes the A4 label grid. Lengths are millimetres;
// margins apply to both opposite edges.
type SheetConfig struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

func (c SheetConfig) withDefaults() SheetConfig {
	if c.Cols <= 0 {
		c.Cols = 3
	}
	if c.Rows <= 0 {
		c.Rows = 7
	}
	return c
}

type grid struct {
	cfg     SheetConfig
	cellW   float64
	cellH   float64
	perPage int
}

func newGrid(cfg SheetConfig, pageW, pageH float64) (grid, error) {
	if cfg.Cols > MaxGridSide || cfg.Rows > MaxGridSide {
		return grid{}, fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrSheetLayout, cfg.Cols, cfg.Rows, MaxGridSide, MaxGridSide)
	}
	g := grid{cfg: cfg, perPage: cfg.Cols * cfg.Rows}
	g.cellW = (pageW - 2*cfg.MarginLeft - float64(cfg.Cols-1)*cfg.GapX) / float64(cfg.Cols)
	g.cellH = (pageH - 2*cfg.MarginTop - float64(cfg.Rows-1)*cfg.GapY) / float64(cfg.Rows)
	if g.cellW <= 0 || g.cellH <= 0 {
		return g, fmt.Errorf("%w: margins leave no room for %dx%d labels", ErrSheetLayout, cfg.Cols, cfg.Rows)
	}
	return g, nil
}

// origin returns the top-left corner of the n-th cell on its page.
func (g grid) origin(n int) (x, y float64) {
	slot := n % g.perPage
	col, row := slot%g.cfg.Cols, slot/g.cfg.Cols
	x = g.cfg.MarginLeft + float64(col)*(g.cellW+g.cfg.GapX)
	y = g.cfg.MarginTop + float64(row)*(g.cellH+g.cfg.GapY)
	return x, y
}

// codeSide is the square QR edge: 70% of the cell height, capped by width.
func (g grid) codeSide() float64 {
	if side := g.cellH * 0.7; side <= g.cellW {
		return side
	}
	return g.cellW * 0.9
}

// SheetPDF prints labels onto A4 pages. Each cell carries the QR code in
// the middle, the traceability code underneath and the batch id in the
// top right corner.
func SheetPDF(items []models.GeneratedLabel, cfg SheetConfig) ([]byte, error) {
	if len(items) == 0 {
		return nil, ErrEmptySheet
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetFont("Arial", "B", 10)

	pageW, pageH := doc.GetPageSize()
	g, err := newGrid(cfg.withDefaults(), pageW, pageH)
	if err != nil {
		return nil, err
	}
	side := g.codeSide()
	pngOpts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for n, item := range items {
		if n%g.perPage == 0 {
			doc.AddPage()
		}
		x, y := g.origin(n)

		img, err := qrcode.Encode(item.QRCodeData, qrcode.Low, 256)
		if err != nil {
			return nil, fmt.Errorf("label %s: %w", item.ID, err)
		}
		name := fmt.Sprintf("code-%d", n)
		doc.RegisterImageOptionsReader(name, pngOpts, bytes.NewReader(img))
		doc.ImageOptions(name, x+(g.cellW-side)/2, y+(g.cellH-side)/2-2, side, side, false, pngOpts, 0, "")

		doc.SetFontSize(8)
		doc.SetXY(x, y+g.cellH-6)
		doc.CellFormat(g.cellW, 5, caption(item), "", 0, "C", false, 0, "")

		doc.SetFontSize(6)
		doc.SetXY(x, y+1)
		doc.CellFormat(g.cellW, 3, item.BatchID, "", 0, "R", false, 0, "")
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// caption is the traceability code, or the label id for foreign payloads.
func caption(label models.GeneratedLabel) string {
	p, err := labels.DecodePayload(label.QRCodeData)
	if err != nil || p.Traceability.TraceabilityCode == "" {
		return label.ID
	}
	return p.Traceability.TraceabilityCode
}
