package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

const defaultExpiryWindowDays = 30

func (r *Router) listPlants(w http.ResponseWriter, req *http.Request) {
	activeOnly := req.URL.Query().Get("active") == "true"
	list, err := r.plants.List(req.Context(), activeOnly)
	if err != nil {
		r.respondStoreError(w, err, "plants")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) getPlant(w http.ResponseWriter, req *http.Request) {
	p, err := r.plants.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondStoreError(w, err, "Plant")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// savePlant inserts or replaces a plant configuration.
func (r *Router) savePlant(w http.ResponseWriter, req *http.Request) {
	var p models.PlantConfiguration
	if err := decodeBody(req, &p); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid plant payload")
		return
	}
	if v := labels.ValidatePlantConfig(p); !v.IsValid {
		respondInvalid(w, v)
		return
	}
	saved, err := r.plants.Save(req.Context(), p)
	if err != nil {
		r.respondStoreError(w, err, "Plant")
		return
	}
	r.publish(models.EventPlantUpdated, saved)
	respondJSON(w, http.StatusOK, saved)
}

func (r *Router) deletePlant(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if err := r.plants.Delete(req.Context(), id); err != nil {
		r.respondStoreError(w, err, "Plant")
		return
	}
	r.publish(models.EventPlantDeleted, map[string]string{"id": id})
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// expiringApprovals lists active approvals expiring within ?days=N (30).
func (r *Router) expiringApprovals(w http.ResponseWriter, req *http.Request) {
	days := defaultExpiryWindowDays
	if v := req.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}
	p, err := r.plants.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondStoreError(w, err, "Plant")
		return
	}
	now := r.gen.Coder().Now()
	respondJSON(w, http.StatusOK, labels.ExpiringApprovals(p, now, time.Duration(days)*24*time.Hour))
}
