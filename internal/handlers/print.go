package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xelth-com/clamflow-labels/internal/models"
	"github.com/xelth-com/clamflow-labels/internal/services/printer"
)

// SheetRequest picks the labels for a printable sheet by batch or by id.
type SheetRequest struct {
	BatchID  string               `json:"batchId"`
	LabelIDs []string             `json:"labelIds"`
	Layout   *printer.SheetConfig `json:"layout,omitempty"`
}

// printSheet streams an A4 PDF of stored labels.
func (r *Router) printSheet(w http.ResponseWriter, req *http.Request) {
	var body SheetRequest
	if err := decodeBody(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	items, err := r.sheetLabels(req, body)
	if errors.Is(err, errNoSelection) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		r.respondStoreError(w, err, "labels")
		return
	}

	layout := r.sheet
	if body.Layout != nil {
		layout = *body.Layout
	}
	doc, err := printer.SheetPDF(items, layout)
	if errors.Is(err, printer.ErrEmptySheet) {
		respondError(w, http.StatusNotFound, "No labels found")
		return
	}
	if errors.Is(err, printer.ErrSheetLayout) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	name := "selection"
	if body.BatchID != "" {
		name = body.BatchID
	}
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Length", strconv.Itoa(len(doc)))
	h.Set("Content-Disposition", `attachment; filename="labels_`+name+`.pdf"`)
	w.Write(doc)
}

var errNoSelection = errors.New("batchId or labelIds is required")

// sheetLabels resolves the request selection; a batch wins over ids.
func (r *Router) sheetLabels(req *http.Request, body SheetRequest) ([]models.GeneratedLabel, error) {
	switch {
	case body.BatchID != "":
		return r.labels.ListByBatch(req.Context(), body.BatchID)
	case len(body.LabelIDs) > 0:
		return r.labels.ListByIDs(req.Context(), body.LabelIDs)
	}
	return nil, errNoSelection
}
