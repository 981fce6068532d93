// Package telemetry records product analytics events. The interface keeps the
// sink swappable; the default deployment sends to PostHog and journals each
// event locally through the store's retry policy.
package telemetry

import "context"

// Event is one analytics event.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]interface{}
}

// Telemetry sends analytics events.
type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}
