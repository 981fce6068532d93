package models

import "time"

// AnalyticsEvent is a local journal row for telemetry events. Rows are written
// through the same bounded-retry policy as credential writes so an event is
// either durably recorded or surfaced as a failure, never silently dropped.
type AnalyticsEvent struct {
	ID         string `gorm:"primaryKey"` // UUID
	Name       string `gorm:"index"`
	DistinctID string `gorm:"index"`
	Properties string // JSON blob
	CreatedAt  time.Time
}
