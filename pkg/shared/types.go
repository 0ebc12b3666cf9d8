package shared

import (
	"time"
)

// DataResponse wraps a successful write-path payload.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the failure envelope for every endpoint. Clients read
// Error.Message first and fall back to Message.
type ErrorResponse struct {
	Message string    `json:"message,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Status  int         `json:"status"`
	Name    string      `json:"name"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Event types
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
}

// Health check
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// Constants
const (
	// Truck models
	ModelToyotaCorolla = "Toyota Corolla"
	ModelToyotaRAV4    = "Toyota RAV4"
	ModelFordFSeries   = "Ford F-Series"
	ModelHondaCRV      = "Honda CR-V"
	ModelDaciaSandero  = "Dacia Sandero"

	// Event types
	EventTypeCreated         = "created"
	EventTypePositionUpdated = "position_updated"
	EventTypePositionNoop    = "position_unchanged"

	// Error names on the wire
	ErrorNameNotFound   = "NotFoundError"
	ErrorNameForbidden  = "ForbiddenError"
	ErrorNameValidation = "ValidationError"
	ErrorNameInternal   = "InternalServerError"
)

// TruckModels lists every accepted model value.
var TruckModels = []string{
	ModelToyotaCorolla,
	ModelToyotaRAV4,
	ModelFordFSeries,
	ModelHondaCRV,
	ModelDaciaSandero,
}
