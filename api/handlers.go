package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fleet-tracker/api/middleware"
	"fleet-tracker/api/services"
	"fleet-tracker/pkg/ontology"
	embeddednats "fleet-tracker/pkg/services/embedded-nats"
	"fleet-tracker/pkg/shared"

	"github.com/go-playground/validator/v10"
)

type Handlers struct {
	truckService *services.TruckService
	validate     *validator.Validate
}

func NewHandlers(truckService *services.TruckService) *Handlers {
	return &Handlers{
		truckService: truckService,
		validate:     validator.New(),
	}
}

// UpdatePosition is the authenticated write path for trucks reporting
// coordinates. The request schema is validated before the service runs.
func (h *Handlers) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var req ontology.UpdatePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, shared.ErrorNameValidation, "Invalid request body", nil)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		sendError(w, http.StatusBadRequest, shared.ErrorNameValidation, "Invalid position update", validationDetails(err))
		return
	}

	summary, err := h.truckService.UpdatePosition(&req)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	sendData(w, http.StatusOK, summary)
}

// TruckPositions returns every truck's current position as a bare array.
func (h *Handlers) TruckPositions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.truckService.ListPositions()
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, summaries)
}

// MapCenter returns the centroid of all current positions, the point a
// map viewer should center on.
func (h *Handlers) MapCenter(w http.ResponseWriter, r *http.Request) {
	center, err := h.truckService.MapCenter()
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	sendData(w, http.StatusOK, center)
}

// Admin handlers
func (h *Handlers) CreateTruck(w http.ResponseWriter, r *http.Request) {
	var req ontology.CreateTruckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, shared.ErrorNameValidation, "Invalid request body", nil)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		sendError(w, http.StatusBadRequest, shared.ErrorNameValidation, "Invalid truck", validationDetails(err))
		return
	}

	truck, err := h.truckService.CreateTruck(&req)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	sendData(w, http.StatusCreated, truck)
}

func (h *Handlers) ListTrucks(w http.ResponseWriter, r *http.Request) {
	trucks, err := h.truckService.ListTrucks()
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, trucks)
}

// Health check
func (h *Handlers) HealthCheck(dbHealth func() error, nats *embeddednats.EmbeddedNATS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := shared.HealthStatus{
			Status:    "healthy",
			Service:   "fleet-tracker",
			Timestamp: time.Now(),
			Details:   make(map[string]string),
		}

		if err := dbHealth(); err != nil {
			health.Status = "unhealthy"
			health.Details["database"] = "unhealthy: " + err.Error()
		} else {
			health.Details["database"] = "healthy"
		}

		if nats != nil {
			if err := nats.HealthCheck(); err != nil {
				health.Status = "unhealthy"
				health.Details["nats"] = "unhealthy: " + err.Error()
			} else {
				health.Details["nats"] = "healthy"
			}
		}

		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		sendJSON(w, statusCode, health)
	}
}

func (h *Handlers) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ontology.ErrTruckNotFound):
		sendError(w, http.StatusNotFound, shared.ErrorNameNotFound, "Truck not found", nil)
	case errors.Is(err, services.ErrInvalidKey):
		sendError(w, http.StatusForbidden, shared.ErrorNameForbidden, "Invalid truck key", nil)
	case errors.Is(err, ontology.ErrDuplicateIdentifier):
		sendError(w, http.StatusBadRequest, shared.ErrorNameValidation, "Truck identifier already exists", nil)
	default:
		sendError(w, http.StatusInternalServerError, shared.ErrorNameInternal, err.Error(), nil)
	}
}

func validationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	details := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}
	return details
}

// Helper functions
func sendJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func sendData(w http.ResponseWriter, statusCode int, data interface{}) {
	sendJSON(w, statusCode, shared.DataResponse{Data: data})
}

func sendError(w http.ResponseWriter, statusCode int, name, message string, details interface{}) {
	sendJSON(w, statusCode, shared.ErrorResponse{
		Message: message,
		Error: &shared.APIError{
			Status:  statusCode,
			Name:    name,
			Message: message,
			Details: details,
		},
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	sendError(w, http.StatusMethodNotAllowed, "MethodNotAllowedError", "Method not allowed", nil)
}

// RegisterRoutes sets up all API routes
func (h *Handlers) RegisterRoutes(mux *http.ServeMux, dbHealth func() error, nats *embeddednats.EmbeddedNATS) {
	// Health check (no auth required)
	mux.HandleFunc("/health", h.HealthCheck(dbHealth, nats))

	// Tracking endpoints; trucks authenticate with their own key inside
	// the update service, viewers poll without credentials.
	mux.HandleFunc("/update-position", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.UpdatePosition(w, r)
	})

	mux.HandleFunc("/truck-positions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.TruckPositions(w, r)
	})

	mux.HandleFunc("/map-center", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.MapCenter(w, r)
	})

	// Administrative endpoints
	mux.HandleFunc("/admin/trucks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			middleware.BearerAuth(h.CreateTruck)(w, r)
		case http.MethodGet:
			middleware.BearerAuth(h.ListTrucks)(w, r)
		default:
			methodNotAllowed(w)
		}
	})
}
