package workers

import (
	"context"
	"encoding/json"
	"log"

	"fleet-tracker/pkg/shared"

	"github.com/nats-io/nats.go"
)

// EventWorker consumes truck lifecycle events (creation by administrators).
type EventWorker struct {
	*BaseWorker
}

func NewEventWorker(nc *nats.Conn, js nats.JetStreamContext) *EventWorker {
	return &EventWorker{
		BaseWorker: NewBaseWorker(
			"EventWorker",
			nc,
			js,
			shared.StreamEvents,
			shared.ConsumerEventProcessor,
			shared.SubjectEventsAll,
		),
	}
}

func (w *EventWorker) Start(ctx context.Context) error {
	return w.processMessages(ctx, func(msg *nats.Msg) {
		var event shared.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[%s] Unparseable message on %s: %s", w.Name(), msg.Subject, string(msg.Data))
			return
		}

		pretty, _ := json.MarshalIndent(event.Data, "", "  ")
		log.Printf("[%s] %s event from %s:\n%s", w.Name(), event.Type, event.Source, string(pretty))
	})
}
