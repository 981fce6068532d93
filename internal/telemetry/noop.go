package telemetry

import "context"

type noop struct{}

// NewNoop returns a telemetry sink that discards everything. Used when no
// PostHog key is configured and in tests.
func NewNoop() Telemetry {
	return noop{}
}

func (noop) Send(context.Context, Event) error { return nil }
func (noop) Close() error                      { return nil }
