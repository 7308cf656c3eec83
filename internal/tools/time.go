package tools

import (
	"context"
	"fmt"
	"time"
)

// Clock returns the current wall-clock time. Injected so get_time is
// deterministic under test.
type Clock func() time.Time

// TimeConfig defines the fixed-offset zone get_time reports.
type TimeConfig struct {
	// UTCOffsetHours shifts UTC to the reported zone (default +3).
	UTCOffsetHours int
	// Label is the human name for the zone, e.g. "Riyadh".
	Label string
	// Now overrides the clock. Nil means time.Now.
	Now Clock
}

// NewTimeTool builds the get_time tool. It takes no required arguments
// and reports wall-clock time shifted to a fixed configured offset.
func NewTimeTool(cfg TimeConfig) *Tool {
	if cfg.UTCOffsetHours == 0 && cfg.Label == "" {
		cfg.UTCOffsetHours = 3
		cfg.Label = "Riyadh"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", cfg.UTCOffsetHours), cfg.UTCOffsetHours*3600)

	return &Tool{
		Name:        "get_time",
		Description: "Get the current date and time. Use for any time, date, or day-of-week question.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			t := now().In(zone)
			return fmt.Sprintf("Current time in %s (UTC%+d) is %s",
				cfg.Label, cfg.UTCOffsetHours, t.Format("2006-01-02 15:04:05")), nil
		},
	}
}
