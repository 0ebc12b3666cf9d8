package shared

import "fmt"

// NATS subject patterns
const (
	SubjectPrefix = "fleet"

	// Position subjects, one per truck identifier
	SubjectPositions     = "fleet.positions"
	SubjectPositionsAll  = "fleet.positions.>"
	SubjectTruckPosition = "fleet.positions.%s" // identifier

	// Lifecycle event subjects
	SubjectEvents       = "fleet.events"
	SubjectEventsAll    = "fleet.events.>"
	SubjectTruckCreated = "fleet.events.%s.created" // identifier
)

// Stream names
const (
	StreamPositions = "FLEET_POSITIONS"
	StreamEvents    = "FLEET_EVENTS"
)

// Consumer names
const (
	ConsumerPositionProcessor = "position-processor"
	ConsumerEventProcessor    = "event-processor"
)

// Helper functions to generate subjects
func TruckPositionSubject(identifier string) string {
	return fmt.Sprintf(SubjectTruckPosition, identifier)
}

func TruckCreatedSubject(identifier string) string {
	return fmt.Sprintf(SubjectTruckCreated, identifier)
}
