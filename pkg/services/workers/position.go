package workers

import (
	"context"
	"encoding/json"
	"log"

	"fleet-tracker/pkg/shared"

	"github.com/nats-io/nats.go"
)

// PositionWorker consumes the position stream and logs each reported
// movement. It is the in-process audit trail for the write path.
type PositionWorker struct {
	*BaseWorker
}

func NewPositionWorker(nc *nats.Conn, js nats.JetStreamContext) *PositionWorker {
	return &PositionWorker{
		BaseWorker: NewBaseWorker(
			"PositionWorker",
			nc,
			js,
			shared.StreamPositions,
			shared.ConsumerPositionProcessor,
			shared.SubjectPositionsAll,
		),
	}
}

func (w *PositionWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, func(msg *nats.Msg) {
		var event shared.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[%s] Unparseable message on %s: %s", w.Name(), msg.Subject, string(msg.Data))
			return
		}

		identifier, _ := event.Data["identifier"].(string)
		lat, _ := event.Data["latitude"].(float64)
		lon, _ := event.Data["longitude"].(float64)

		switch event.Type {
		case shared.EventTypePositionUpdated:
			log.Printf("[%s] Truck %s moved to (%.6f, %.6f)", w.Name(), identifier, lat, lon)
		case shared.EventTypePositionNoop:
			log.Printf("[%s] Truck %s reported unchanged position (%.6f, %.6f)", w.Name(), identifier, lat, lon)
		default:
			log.Printf("[%s] Position event %s for truck %s", w.Name(), event.Type, identifier)
		}
	})
}
