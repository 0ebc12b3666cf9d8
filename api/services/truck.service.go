package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"fleet-tracker/pkg/geo"
	"fleet-tracker/pkg/ontology"
	embeddednats "fleet-tracker/pkg/services/embedded-nats"
	"fleet-tracker/pkg/shared"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned when the supplied key does not match the
// truck's stored secret. The message is deliberately uniform: callers learn
// nothing about the stored key.
var ErrInvalidKey = errors.New("invalid truck key")

// TruckRegistry is the document store holding truck records. The sqlite
// implementation lives in the db package; tests substitute a fake.
type TruckRegistry interface {
	FindByIdentifier(identifier string) (*ontology.Truck, error)
	FindAll() ([]ontology.Truck, error)
	UpdateByID(documentID string, update ontology.PositionUpdate) (*ontology.Truck, error)
	Create(truck *ontology.Truck) error
}

// ChangeDetector decides whether a proposed position differs from the
// stored one. geo.PositionChanged is the production implementation.
type ChangeDetector func(old *ontology.Position, next ontology.Position) bool

type TruckService struct {
	registry      TruckRegistry
	changed       ChangeDetector
	nats          *embeddednats.EmbeddedNATS
	defaultCenter ontology.Position
	now           func() time.Time
}

func NewTruckService(registry TruckRegistry, changed ChangeDetector, nats *embeddednats.EmbeddedNATS, defaultCenter ontology.Position) *TruckService {
	if changed == nil {
		changed = geo.PositionChanged
	}
	return &TruckService{
		registry:      registry,
		changed:       changed,
		nats:          nats,
		defaultCenter: defaultCenter,
		now:           time.Now,
	}
}

// Authenticate reports whether suppliedKey matches the stored secret of
// the truck addressed by identifier. Exact string match, no side effects.
func (s *TruckService) Authenticate(identifier, suppliedKey string) (bool, error) {
	truck, err := s.registry.FindByIdentifier(identifier)
	if err != nil {
		return false, err
	}
	return truck.Key == suppliedKey, nil
}

// UpdatePosition is the authenticated write path: look the truck up,
// verify its key, persist the new coordinates, and stamp
// positionUpdatedAt only when they actually differ from the stored ones.
// The not-found check runs before the key check; that ordering leaks
// identifier existence and is kept as a documented limit of the contract.
func (s *TruckService) UpdatePosition(req *ontology.UpdatePositionRequest) (*ontology.TruckSummary, error) {
	truck, err := s.registry.FindByIdentifier(req.Identifier)
	if err != nil {
		return nil, err
	}

	if truck.Key != req.Key {
		return nil, ErrInvalidKey
	}

	next := ontology.Position{Latitude: req.Latitude, Longitude: req.Longitude}
	update := ontology.PositionUpdate{Position: next}

	moved := s.changed(truck.Position, next)
	if moved {
		stamp := s.now().UTC()
		update.PositionUpdatedAt = &stamp
	}

	updated, err := s.registry.UpdateByID(truck.DocumentID, update)
	if err != nil {
		return nil, err
	}

	go s.publishPositionEvent(updated, moved)

	return &ontology.TruckSummary{
		Identifier:        updated.Identifier,
		Position:          updated.Position,
		PositionUpdatedAt: updated.PositionUpdatedAt,
	}, nil
}

// ListPositions returns every truck's current position without the key.
// An empty fleet yields an empty slice, not an error.
func (s *TruckService) ListPositions() ([]ontology.TruckSummary, error) {
	trucks, err := s.registry.FindAll()
	if err != nil {
		return nil, err
	}

	summaries := make([]ontology.TruckSummary, 0, len(trucks))
	for _, truck := range trucks {
		summaries = append(summaries, ontology.TruckSummary{
			Identifier:        truck.Identifier,
			Model:             truck.Model,
			DocumentID:        truck.DocumentID,
			Position:          truck.Position,
			PositionUpdatedAt: truck.PositionUpdatedAt,
		})
	}

	return summaries, nil
}

// MapCenter returns the centroid of all current positions, falling back to
// the configured default center when no truck has a position yet.
func (s *TruckService) MapCenter() (ontology.Position, error) {
	trucks, err := s.registry.FindAll()
	if err != nil {
		return ontology.Position{}, err
	}

	positions := make([]ontology.Position, 0, len(trucks))
	for _, truck := range trucks {
		if truck.Position != nil {
			positions = append(positions, *truck.Position)
		}
	}

	return geo.Centroid(positions, s.defaultCenter), nil
}

// CreateTruck registers a new truck with its identifier, model, optional
// initial position, and secret key. Administrative operation.
func (s *TruckService) CreateTruck(req *ontology.CreateTruckRequest) (*ontology.Truck, error) {
	now := s.now().UTC()

	truck := &ontology.Truck{
		DocumentID: uuid.New().String(),
		Identifier: req.Identifier,
		Model:      req.Model,
		Position:   req.Position,
		Key:        req.Key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.registry.Create(truck); err != nil {
		return nil, err
	}

	go s.publishCreatedEvent(truck)

	return truck, nil
}

// ListTrucks returns full records for administrators. The key still never
// leaves the process: Truck serializes without it.
func (s *TruckService) ListTrucks() ([]ontology.Truck, error) {
	return s.registry.FindAll()
}

func (s *TruckService) publishPositionEvent(truck *ontology.Truck, moved bool) {
	eventType := shared.EventTypePositionNoop
	if moved {
		eventType = shared.EventTypePositionUpdated
	}

	data := map[string]interface{}{
		"identifier": truck.Identifier,
		"documentId": truck.DocumentID,
	}
	if truck.Position != nil {
		data["latitude"] = truck.Position.Latitude
		data["longitude"] = truck.Position.Longitude
	}
	if truck.PositionUpdatedAt != nil {
		data["positionUpdatedAt"] = truck.PositionUpdatedAt.Format(time.RFC3339)
	}

	s.publishEvent(shared.TruckPositionSubject(truck.Identifier), eventType, truck.Identifier, data)
}

func (s *TruckService) publishCreatedEvent(truck *ontology.Truck) {
	s.publishEvent(shared.TruckCreatedSubject(truck.Identifier), shared.EventTypeCreated, truck.Identifier, map[string]interface{}{
		"identifier": truck.Identifier,
		"documentId": truck.DocumentID,
		"model":      truck.Model,
	})
}

func (s *TruckService) publishEvent(subject, eventType, identifier string, data map[string]interface{}) {
	if s.nats == nil || s.nats.JetStream() == nil {
		return
	}

	event := shared.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Subject:   subject,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Source:    "truck-service",
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", eventType, err)
		return
	}

	msgID := fmt.Sprintf("%s-%s-%d", identifier, eventType, time.Now().UnixNano())

	if err := s.nats.PublishWithDedup(subject, payload, msgID); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
