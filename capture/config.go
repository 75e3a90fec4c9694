package capture

import (
	"log/slog"
	"time"
)

// Config configures the capture service.
type Config struct {
	// TickInterval is how often the scheduler evaluates due schedules.
	TickInterval time.Duration

	// Location interprets schedule time-of-day values. Court deadlines are
	// operator-local, so this should be the operator's zone, not UTC.
	Location *time.Location

	// HearingWindowDays is the date range fetched for hearing captures,
	// counted forward from the run date.
	HearingWindowDays int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.HearingWindowDays <= 0 {
		c.HearingWindowDays = 30
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
