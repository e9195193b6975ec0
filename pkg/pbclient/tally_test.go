package pbclient

import (
	"testing"
	"time"
)

func rosterFull(limit int, main, screening []string) *Full {
	f := &Full{
		Config: Config{BR: limit},
		Roster: []Participant{
			{Name: "A", BR: 300},
			{Name: "B", BR: 250},
			{Name: "C", BR: 200},
			{Name: "D", BR: 100},
		},
	}
	if main != nil || screening != nil {
		f.Assignments = &Assignments{Main: main, Screening: screening}
	}
	return f
}

func TestTally(t *testing.T) {
	tests := []struct {
		name string
		full *Full
		want BRTally
	}{
		{
			name: "no limit",
			full: rosterFull(0, []string{"A"}, []string{"B"}),
			want: BRTally{MainBR: 300, ScreeningBR: 250, Status: StatusNone},
		},
		{
			name: "unassigned",
			full: rosterFull(1000, nil, nil),
			want: BRTally{Limit: 1000, Status: StatusOK},
		},
		{
			name: "under",
			full: rosterFull(1000, []string{"A", "B"}, []string{"C"}),
			want: BRTally{MainBR: 550, ScreeningBR: 200, Limit: 1000, Status: StatusOK},
		},
		{
			name: "warn at 80 percent",
			full: rosterFull(1000, []string{"A", "B", "C", "D"}, nil),
			want: BRTally{MainBR: 850, Limit: 1000, Status: StatusWarn},
		},
		{
			name: "exactly at limit",
			full: rosterFull(850, []string{"A", "B", "C", "D"}, nil),
			want: BRTally{MainBR: 850, Limit: 850, Status: StatusOver},
		},
		{
			name: "over",
			full: rosterFull(500, []string{"A", "B"}, nil),
			want: BRTally{MainBR: 550, Limit: 500, Status: StatusOver, Over: 50},
		},
		{
			name: "screening does not count toward the limit",
			full: rosterFull(500, []string{"D"}, []string{"A", "B", "C"}),
			want: BRTally{MainBR: 100, ScreeningBR: 750, Limit: 500, Status: StatusOK},
		},
		{
			name: "dangling names skipped",
			full: rosterFull(1000, []string{"A", "Ghost"}, []string{"Phantom"}),
			want: BRTally{MainBR: 300, Limit: 1000, Status: StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tally(tt.full); got != tt.want {
				t.Errorf("Tally() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCountdown(t *testing.T) {
	cfg := Config{Date: "2030-05-01", Time: "18:00"}
	start := time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"two hours before", start.Add(-2 * time.Hour), 2 * time.Hour},
		{"at start", start, 0},
		{"after start", start.Add(time.Minute), 0},
		{"other zone", start.Add(-90 * time.Minute).In(time.FixedZone("UTC+2", 2*3600)), 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Countdown(cfg, tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Countdown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountdown_InvalidStart(t *testing.T) {
	for _, cfg := range []Config{
		{Date: "tomorrow", Time: "18:00"},
		{Date: "2030-05-01", Time: "6pm"},
		{},
	} {
		if _, err := Countdown(cfg, time.Now()); err == nil {
			t.Errorf("expected an error for %+v", cfg)
		}
	}
}
