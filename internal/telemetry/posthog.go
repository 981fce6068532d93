package telemetry

import (
	"context"

	"github.com/posthog/posthog-go"
)

type posthogSink struct {
	client posthog.Client
}

// NewPostHog creates a PostHog-backed telemetry sink.
func NewPostHog(apiKey, endpoint string) (Telemetry, error) {
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		return nil, err
	}
	return &posthogSink{client: client}, nil
}

func (s *posthogSink) Send(_ context.Context, event Event) error {
	capture := posthog.Capture{
		DistinctId: event.DistinctID,
		Event:      event.Name,
		Properties: event.Properties,
	}
	if err := capture.Validate(); err != nil {
		return err
	}
	return s.client.Enqueue(capture)
}

func (s *posthogSink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
