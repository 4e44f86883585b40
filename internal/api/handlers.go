// Package api exposes the HTTP read surface over the child telemetry
// engines.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/zoulfiq4r/FamilyGuardWeb/internal/engine"
	"github.com/zoulfiq4r/FamilyGuardWeb/internal/screening"
)

// Handler coordinates HTTP requests with the engine registry.
type Handler struct {
	registry  *engine.Registry
	screening *screening.Service
	now       func() time.Time
}

// NewHandler builds a Handler. screeningSvc may be nil; the scoring endpoint
// then accepts only pre-annotated requests.
func NewHandler(registry *engine.Registry, screeningSvc *screening.Service) *Handler {
	return &Handler{
		registry:  registry,
		screening: screeningSvc,
		now:       time.Now,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/children/", h.children)
	mux.HandleFunc("/v1/screening/score", h.score)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// children routes /v1/children/{id}/{resource}.
func (h *Handler) children(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/children/")
	childID, resource, ok := strings.Cut(rest, "/")
	if !ok || childID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "expected /v1/children/{id}/{resource}")
		return
	}

	eng := h.registry.Get(childID)
	if eng == nil {
		writeError(w, http.StatusServiceUnavailable, "shutting_down", "service is shutting down")
		return
	}

	switch resource {
	case "telemetry":
		writeJSON(w, http.StatusOK, h.toTelemetryView(eng.Snapshot()))
	case "location":
		writeJSON(w, http.StatusOK, h.toLocationView(eng.LocationSnapshot()))
	case "apps":
		writeJSON(w, http.StatusOK, h.toAppsView(eng.AppsSnapshot()))
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

// ScoreRequest carries either an image URL for classification or a raw label
// vector to be scored locally.
type ScoreRequest struct {
	ImageURL   string                `json:"imageUrl,omitempty"`
	Annotation *screening.Annotation `json:"annotation,omitempty"`
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	switch {
	case req.Annotation != nil:
		writeJSON(w, http.StatusOK, screening.Score(*req.Annotation))
	case req.ImageURL != "":
		if h.screening == nil {
			writeError(w, http.StatusBadRequest, "no_classifier", "no classifier configured; submit an annotation instead")
			return
		}
		result, err := h.screening.Analyze(r.Context(), req.ImageURL)
		if err != nil {
			if errors.Is(err, screening.ErrNoClassifier) {
				writeError(w, http.StatusBadRequest, "no_classifier", err.Error())
				return
			}
			writeError(w, http.StatusBadGateway, "classifier_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusBadRequest, "validation_failed", "imageUrl or annotation required")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
