package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"github.com/xelth-com/clamflow-labels/internal/store"
)

const maxImportSize = 1 << 20

// listTemplates returns templates filtered by category, active flag and
// name search.
func (r *Router) listTemplates(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := store.TemplateFilter{
		Category: q.Get("category"),
		PlantID:  q.Get("plantId"),
		Search:   q.Get("search"),
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		filter.Active = &active
	}

	list, err := r.templates.List(req.Context(), filter)
	if err != nil {
		r.respondStoreError(w, err, "templates")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) getTemplate(w http.ResponseWriter, req *http.Request) {
	t, err := r.templates.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondStoreError(w, err, "Template")
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (r *Router) createTemplate(w http.ResponseWriter, req *http.Request) {
	var t models.Template
	if err := decodeBody(req, &t); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid template payload")
		return
	}
	r.storeNewTemplate(w, req, t)
}

// importTemplate accepts a JSON or YAML template document; the format comes
// from ?format= and defaults to JSON.
func (r *Router) importTemplate(w http.ResponseWriter, req *http.Request) {
	format, err := labels.ParseDocumentFormat(req.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer req.Body.Close()
	body, err := io.ReadAll(io.LimitReader(req.Body, maxImportSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read template document")
		return
	}
	t, err := labels.DecodeTemplate(body, format)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// imported documents always get a fresh identity
	t.ID = ""
	r.storeNewTemplate(w, req, t)
}

func (r *Router) storeNewTemplate(w http.ResponseWriter, req *http.Request, t models.Template) {
	if v := labels.ValidateTemplate(t); !v.IsValid {
		respondInvalid(w, v)
		return
	}
	created, err := r.templates.Create(req.Context(), t)
	if err != nil {
		r.respondStoreError(w, err, "Template")
		return
	}
	r.publish(models.EventTemplateCreated, created)
	respondJSON(w, http.StatusCreated, created)
}

func (r *Router) updateTemplate(w http.ResponseWriter, req *http.Request) {
	var u models.TemplateUpdate
	if err := decodeBody(req, &u); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid template payload")
		return
	}
	if v := labels.ValidateTemplateUpdate(u); !v.IsValid {
		respondInvalid(w, v)
		return
	}
	updated, err := r.templates.Update(req.Context(), mux.Vars(req)["id"], u)
	if err != nil {
		r.respondStoreError(w, err, "Template")
		return
	}
	r.publish(models.EventTemplateUpdated, updated)
	respondJSON(w, http.StatusOK, updated)
}

func (r *Router) deleteTemplate(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if err := r.templates.Delete(req.Context(), id); err != nil {
		r.respondStoreError(w, err, "Template")
		return
	}
	r.publish(models.EventTemplateDeleted, map[string]string{"id": id})
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// exportTemplate downloads a template as JSON or YAML.
func (r *Router) exportTemplate(w http.ResponseWriter, req *http.Request) {
	format, err := labels.ParseDocumentFormat(req.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := r.templates.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondStoreError(w, err, "Template")
		return
	}
	doc, err := labels.EncodeTemplate(t, format)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to encode template")
		return
	}

	contentType, ext := "application/json", "json"
	if format == labels.DocumentYAML {
		contentType, ext = "application/yaml", "yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"template_%s.%s\"", t.ID, ext))
	w.Write(doc)
}
