package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/clamflow-labels/internal/buildinfo"
	"github.com/xelth-com/clamflow-labels/internal/database"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/logger"
	"github.com/xelth-com/clamflow-labels/internal/middleware"
	"github.com/xelth-com/clamflow-labels/internal/models"
	"github.com/xelth-com/clamflow-labels/internal/services/printer"
	"github.com/xelth-com/clamflow-labels/internal/store"
	"github.com/xelth-com/clamflow-labels/internal/websocket"
)

// Deps are the collaborators the router serves.
type Deps struct {
	DB             *database.DB
	Generator      *labels.Generator
	Hub            *websocket.Hub
	Log            *logger.Logger
	Sheet          printer.SheetConfig
	FrontendDir    string
	AllowedOrigins []string
}

// Router wraps the mux router and the label services.
type Router struct {
	*mux.Router
	templates *store.TemplateStore
	plants    *store.PlantStore
	labels    *store.LabelStore
	gen       *labels.Generator
	hub       *websocket.Hub
	log       *logger.Logger
	sheet     printer.SheetConfig
	origins   []string
}

// NewRouter creates a new HTTP router with all routes.
func NewRouter(d Deps) *Router {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	r := &Router{
		Router:    mux.NewRouter(),
		templates: store.NewTemplateStore(d.DB.DB),
		plants:    store.NewPlantStore(d.DB.DB),
		labels:    store.NewLabelStore(d.DB.DB),
		gen:       d.Generator,
		hub:       d.Hub,
		log:       d.Log,
		sheet:     d.Sheet,
		origins:   d.AllowedOrigins,
	}

	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	tpl := r.PathPrefix("/api/templates").Subrouter()
	tpl.HandleFunc("", r.listTemplates).Methods("GET")
	tpl.HandleFunc("", r.createTemplate).Methods("POST")
	tpl.HandleFunc("/import", r.importTemplate).Methods("POST")
	tpl.HandleFunc("/{id}", r.getTemplate).Methods("GET")
	tpl.HandleFunc("/{id}", r.updateTemplate).Methods("PUT")
	tpl.HandleFunc("/{id}", r.deleteTemplate).Methods("DELETE")
	tpl.HandleFunc("/{id}/export", r.exportTemplate).Methods("GET")

	plants := r.PathPrefix("/api/plants").Subrouter()
	plants.HandleFunc("", r.listPlants).Methods("GET")
	plants.HandleFunc("", r.savePlant).Methods("POST")
	plants.HandleFunc("/{id}", r.getPlant).Methods("GET")
	plants.HandleFunc("/{id}", r.deletePlant).Methods("DELETE")
	plants.HandleFunc("/{id}/approvals/expiring", r.expiringApprovals).Methods("GET")

	lbl := r.PathPrefix("/api/labels").Subrouter()
	lbl.HandleFunc("/generate", r.generateLabel).Methods("POST")
	lbl.HandleFunc("/batch", r.generateBatch).Methods("POST")
	lbl.HandleFunc("/statistics", r.labelStatistics).Methods("GET", "POST")
	lbl.HandleFunc("/sheet", r.printSheet).Methods("POST")
	lbl.HandleFunc("/{id}/export", r.exportLabel).Methods("GET")

	if d.Hub != nil {
		r.HandleFunc("/ws", websocket.Handler(d.Hub, d.AllowedOrigins))
	}
	if d.FrontendDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.FrontendDir)))
	}

	return r
}

// Handler wraps the routes with recovery, request logging and CORS. CORS
// sits outside the mux so preflight requests reach it.
func (r *Router) Handler() http.Handler {
	var h http.Handler = r
	h = middleware.CORS(r.origins)(h)
	h = middleware.RequestLogger(r.log)(h)
	return middleware.Recoverer(r.log)(h)
}

// healthCheck returns the health status of the API.
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	clients := 0
	if r.hub != nil {
		clients = r.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"build":      buildinfo.Current(),
		"ws_clients": clients,
	})
}

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details []string    `json:"details,omitempty"`
}

// respondJSON sends a successful JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

// respondInvalid sends a 422 carrying every validation error.
func respondInvalid(w http.ResponseWriter, v labels.ValidationResult) {
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Success: false,
		Error:   "Validation failed",
		Details: v.Errors,
	})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondStoreError maps store errors onto status codes.
func (r *Router) respondStoreError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, what+" not found")
		return
	}
	r.log.Error("store operation failed", "entity", what, "error", err)
	respondError(w, http.StatusInternalServerError, "Failed to access "+what)
}

func decodeBody(req *http.Request, v interface{}) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(v)
}

// publish pushes an event to websocket listeners, if any.
func (r *Router) publish(t models.EventType, data interface{}) {
	if r.hub == nil {
		return
	}
	r.hub.Broadcast(models.LabelFormatEvent{
		Type:      t,
		Timestamp: labels.FormatTimestamp(time.Now()),
		Data:      data,
	})
}
