package pbclient

import (
	"fmt"
	"time"
)

// BR status of the main group against the event limit
const (
	StatusNone = "none" // no limit set
	StatusOK   = "ok"
	StatusWarn = "warn" // at or above 80% of the limit
	StatusOver = "over" // at or above the limit
)

// warnRatio is the share of the limit at which the tally turns to warn
const warnRatio = 0.8

// BRTally sums battle ratings per group. The limit only applies to Main.
type BRTally struct {
	MainBR      int
	ScreeningBR int
	Limit       int
	Status      string
	Over        int // how far MainBR exceeds the limit, 0 if not over
}

// Tally computes the BR sums of an event's groups. Assigned names missing
// from the roster are skipped.
func Tally(full *Full) BRTally {
	t := BRTally{Limit: full.BR, Status: StatusNone}
	if full.Assignments != nil {
		t.MainBR = sumBR(full, full.Assignments.Main)
		t.ScreeningBR = sumBR(full, full.Assignments.Screening)
	}

	if t.Limit <= 0 {
		return t
	}
	ratio := float64(t.MainBR) / float64(t.Limit)
	switch {
	case ratio >= 1:
		t.Status = StatusOver
		t.Over = t.MainBR - t.Limit
	case ratio >= warnRatio:
		t.Status = StatusWarn
	default:
		t.Status = StatusOK
	}
	return t
}

func sumBR(full *Full, names []string) int {
	total := 0
	for _, name := range names {
		if p, ok := full.Participant(name); ok {
			total += p.BR
		}
	}
	return total
}

// startLayout is date and time joined the way events store them, in UTC
const startLayout = "2006-01-02T15:04Z"

// StartTime returns the battle start of cfg
func StartTime(cfg Config) (time.Time, error) {
	start, err := time.Parse(startLayout, cfg.Date+"T"+cfg.Time+"Z")
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start %q %q: %w", cfg.Date, cfg.Time, err)
	}
	return start, nil
}

// Countdown returns the time left until the battle starts, or zero once it
// has started
func Countdown(cfg Config, now time.Time) (time.Duration, error) {
	start, err := StartTime(cfg)
	if err != nil {
		return 0, err
	}
	if left := start.Sub(now); left > 0 {
		return left, nil
	}
	return 0, nil
}
