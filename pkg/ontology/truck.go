package ontology

import (
	"errors"
	"time"
)

var (
	// ErrTruckNotFound is returned when an identifier resolves to no truck.
	ErrTruckNotFound = errors.New("truck not found")

	// ErrDuplicateIdentifier is returned when creating a truck whose
	// identifier is already taken.
	ErrDuplicateIdentifier = errors.New("truck identifier already exists")
)

// Position is a latitude/longitude pair in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// Truck is a tracked delivery vehicle. Key authenticates position updates
// and is never serialized.
type Truck struct {
	DocumentID        string     `json:"documentId" db:"document_id"`
	Identifier        string     `json:"identifier" db:"identifier"`
	Model             string     `json:"model" db:"model"`
	Position          *Position  `json:"position,omitempty"`
	PositionUpdatedAt *time.Time `json:"positionUpdatedAt,omitempty" db:"position_updated_at"`
	Key               string     `json:"-" db:"key"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// TruckSummary is the read-path projection of a truck. It carries no key.
type TruckSummary struct {
	Identifier        string     `json:"identifier"`
	Model             string     `json:"model,omitempty"`
	DocumentID        string     `json:"documentId,omitempty"`
	Position          *Position  `json:"position"`
	PositionUpdatedAt *time.Time `json:"positionUpdatedAt"`
}

// PositionUpdate is the combined payload for a single registry write.
// PositionUpdatedAt nil means the stored timestamp is left untouched.
type PositionUpdate struct {
	Position          Position
	PositionUpdatedAt *time.Time
}

type UpdatePositionRequest struct {
	Identifier string  `json:"identifier" validate:"required"`
	Latitude   float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64 `json:"longitude" validate:"min=-180,max=180"`
	Key        string  `json:"key" validate:"required"`
}

type CreateTruckRequest struct {
	Identifier string    `json:"identifier" validate:"required,min=1,max=255"`
	Model      string    `json:"model" validate:"required,oneof='Toyota Corolla' 'Toyota RAV4' 'Ford F-Series' 'Honda CR-V' 'Dacia Sandero'"`
	Position   *Position `json:"position,omitempty"`
	Key        string    `json:"key" validate:"required,min=1"`
}
