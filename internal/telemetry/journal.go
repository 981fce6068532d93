package telemetry

import (
	"context"
	"log"

	"github.com/finboardhq/finboard/internal/store"
)

type journaled struct {
	inner Telemetry
	store *store.CredentialStore
}

// WithJournal wraps a sink so every event is also written to the local event
// journal. The journal write runs through the store's bounded-retry policy;
// a journal failure is logged and surfaced but does not block the sink.
func WithJournal(inner Telemetry, s *store.CredentialStore) Telemetry {
	return &journaled{inner: inner, store: s}
}

func (j *journaled) Send(ctx context.Context, event Event) error {
	if err := j.store.AppendEvent(ctx, event.Name, event.DistinctID, event.Properties); err != nil {
		log.Printf("⚠️ Event journal write failed for %s: %v", event.Name, err)
		return err
	}
	return j.inner.Send(ctx, event)
}

func (j *journaled) Close() error {
	return j.inner.Close()
}
