package messaging

import (
	"context"

	"share-note-backend/application/ports"
	"share-note-backend/domain/events"
	"share-note-backend/infrastructure/observability"
)

// MeteredPublisher counts note lifecycle events before handing them on.
// Counting happens even when the downstream publish fails.
type MeteredPublisher struct {
	next      ports.EventPublisher
	collector *observability.Collector
}

// NewMeteredPublisher wraps next
func NewMeteredPublisher(next ports.EventPublisher, collector *observability.Collector) *MeteredPublisher {
	return &MeteredPublisher{next: next, collector: collector}
}

// Publish implements ports.EventPublisher
func (p *MeteredPublisher) Publish(ctx context.Context, evts []events.DomainEvent) error {
	for _, evt := range evts {
		switch evt.GetEventType() {
		case events.TypeNoteCreated:
			p.collector.NotesCreated.Inc()
		case events.TypeNoteConsumed:
			p.collector.NotesConsumed.Inc()
		}
	}
	return p.next.Publish(ctx, evts)
}
