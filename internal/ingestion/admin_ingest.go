package ingestion

import (
	"StakeVault/internal/event"
	"context"
)

// AdminIngestService injects typed commands straight into the core's event
// channel, bypassing NATS. The HTTP admin surface uses it for manual
// operations; it is not a high-throughput path.
//
// Callers assign source sequences: admin commands share the same partition
// ordering rules as NATS-delivered ones, so the producer (the admin client)
// must supply the next sequence for the target partition.
type AdminIngestService struct {
	eventChan chan<- event.Event
}

func NewAdminIngestService(eventChan chan<- event.Event) *AdminIngestService {
	return &AdminIngestService{eventChan: eventChan}
}

// Inject queues one typed command for the core.
func (s *AdminIngestService) Inject(ctx context.Context, evt event.Event) error {
	select {
	case s.eventChan <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
