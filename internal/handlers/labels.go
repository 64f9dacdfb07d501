package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

const batchIDAttempts = 5

// GenerateRequest is the body of /api/labels/generate.
type GenerateRequest struct {
	TemplateID  string                 `json:"templateId"`
	PlantID     string                 `json:"plantId"`
	FormData    map[string]interface{} `json:"formData"`
	StationData map[string]interface{} `json:"stationData"`
	Options     labels.GenerateOptions `json:"options"`
}

// BatchRequest is the body of /api/labels/batch.
type BatchRequest struct {
	GenerateRequest
	Batch labels.BatchConfig `json:"batch"`
}

// StatisticsRequest selects labels by id.
type StatisticsRequest struct {
	LabelIDs []string `json:"labelIds"`
}

// loadInputs fetches and checks the template and plant of a request.
func (r *Router) loadInputs(ctx context.Context, w http.ResponseWriter, g GenerateRequest) (models.Template, *models.PlantConfiguration, bool) {
	if g.TemplateID == "" || g.PlantID == "" {
		respondError(w, http.StatusBadRequest, "templateId and plantId are required")
		return models.Template{}, nil, false
	}
	tpl, err := r.templates.Get(ctx, g.TemplateID)
	if err != nil {
		r.respondStoreError(w, err, "Template")
		return tpl, nil, false
	}
	if !tpl.IsActive {
		respondError(w, http.StatusConflict, "Template is not active")
		return tpl, nil, false
	}
	if v := labels.ValidateForGeneration(tpl); !v.IsValid {
		respondInvalid(w, v)
		return tpl, nil, false
	}
	plant, err := r.plants.Get(ctx, g.PlantID)
	if err != nil {
		r.respondStoreError(w, err, "Plant")
		return tpl, nil, false
	}
	return tpl, &plant, true
}

// generateLabel produces and stores a single label.
func (r *Router) generateLabel(w http.ResponseWriter, req *http.Request) {
	var body GenerateRequest
	if err := decodeBody(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ctx := req.Context()
	tpl, plant, ok := r.loadInputs(ctx, w, body)
	if !ok {
		return
	}

	label, err := r.gen.Generate(ctx, tpl, plant, body.FormData, body.StationData, body.Options)
	if err != nil {
		r.respondGenerateError(w, err)
		return
	}
	if err := r.labels.SaveLabels(ctx, []models.GeneratedLabel{*label}); err != nil {
		r.respondStoreError(w, err, "labels")
		return
	}

	r.publish(models.EventLabelsGenerated, map[string]interface{}{
		"templateId": tpl.ID, "plantId": plant.ID, "batchId": label.BatchID, "count": 1,
	})
	respondJSON(w, http.StatusCreated, label)
}

// generateBatch produces and stores a batch sharing one batch id. A missing
// batch id is drawn until it does not collide with a stored batch.
func (r *Router) generateBatch(w http.ResponseWriter, req *http.Request) {
	var body BatchRequest
	if err := decodeBody(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ctx := req.Context()
	tpl, plant, ok := r.loadInputs(ctx, w, body.GenerateRequest)
	if !ok {
		return
	}

	if body.Batch.BatchID == "" {
		id, err := r.gen.Coder().UniqueBatchID(plant.ID, batchIDAttempts, func(id string) (bool, error) {
			return r.labels.BatchExists(ctx, id)
		})
		if err != nil {
			r.log.Error("batch id allocation failed", "plant_id", plant.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "Failed to allocate batch id")
			return
		}
		body.Batch.BatchID = id
	}

	out, err := r.gen.GenerateBatch(ctx, tpl, plant, body.Batch, body.FormData, body.StationData, body.Options)
	if err != nil {
		r.respondGenerateError(w, err)
		return
	}
	items := make([]models.GeneratedLabel, len(out))
	for i, l := range out {
		items[i] = *l
	}
	if err := r.labels.SaveLabels(ctx, items); err != nil {
		r.respondStoreError(w, err, "labels")
		return
	}

	r.log.Info("batch generated", "batch_id", body.Batch.BatchID, "count", len(items), "plant_id", plant.ID)
	r.publish(models.EventLabelsGenerated, map[string]interface{}{
		"templateId": tpl.ID, "plantId": plant.ID, "batchId": body.Batch.BatchID, "count": len(items),
	})
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"batchId": body.Batch.BatchID,
		"labels":  items,
	})
}

func (r *Router) respondGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, labels.ErrInvalidQuantity), errors.Is(err, labels.ErrNoFields), errors.Is(err, labels.ErrNoPlant),
		errors.Is(err, labels.ErrQRCodeSize), errors.Is(err, labels.ErrSequenceFormat):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "Generation cancelled")
	default:
		r.log.Error("label generation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate labels")
	}
}

// exportLabel renders a stored label as json, html, pdf or png.
func (r *Router) exportLabel(w http.ResponseWriter, req *http.Request) {
	format := labels.ExportFormat(strings.ToLower(req.URL.Query().Get("format")))
	if format == "" {
		format = labels.FormatJSON
	}
	label, err := r.labels.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondStoreError(w, err, "Label")
		return
	}
	body, err := labels.ExportLabel(label, format)
	if errors.Is(err, labels.ErrUnsupportedFormat) {
		respondError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		r.log.Error("label export failed", "label_id", label.ID, "format", format, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to export label")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format == labels.FormatPDF {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"label_%s.pdf\"", label.ID))
	}
	w.Write(body)
}

// labelStatistics summarises labels chosen by ?batchId= or a labelIds body.
func (r *Router) labelStatistics(w http.ResponseWriter, req *http.Request) {
	var (
		items []models.GeneratedLabel
		err   error
	)
	if req.Method == http.MethodGet {
		batchID := req.URL.Query().Get("batchId")
		if batchID == "" {
			respondError(w, http.StatusBadRequest, "batchId is required")
			return
		}
		items, err = r.labels.ListByBatch(req.Context(), batchID)
	} else {
		var body StatisticsRequest
		if err := decodeBody(req, &body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		items, err = r.labels.ListByIDs(req.Context(), body.LabelIDs)
	}
	if err != nil {
		r.respondStoreError(w, err, "labels")
		return
	}
	respondJSON(w, http.StatusOK, labels.GenerateStatistics(items))
}
