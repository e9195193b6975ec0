package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt is an int that can be unmarshaled from either a JSON number or a numeric string.
// Browser forms post battle ratings as strings.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler for FlexInt
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return f.set(n.String())
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return f.set(s)
	}

	return fmt.Errorf("FlexInt: cannot unmarshal %s", string(data))
}

// set parses s leniently: non-numeric text becomes 0, fractions are truncated
func (f *FlexInt) set(s string) error {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		*f = FlexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int(v))
		return nil
	}
	*f = 0
	return nil
}

// Int returns the plain int value
func (f FlexInt) Int() int {
	return int(f)
}

// Metadata is the officer-editable part of an event
type Metadata struct {
	Name        string `json:"name"`
	Date        string `json:"date"`  // YYYY-MM-DD
	Time        string `json:"time"`  // HH:MM, UTC
	BattleLimit int    `json:"br"`    // advisory battle rating cap for the main group
	WaterDepth  string `json:"water"` // deep / shallow
}

// Participant is one signed-up player
type Participant struct {
	Name      string  `json:"name"`
	Ship      string  `json:"ship"`
	BR        FlexInt `json:"br"`
	CreatedBy string  `json:"createdBy"`
}

// Assignments partitions roster names into the two groups
type Assignments struct {
	Main      []string `json:"main"`
	Screening []string `json:"screening"`
}

// Clone returns a deep copy; nil stays nil
func (a *Assignments) Clone() *Assignments {
	if a == nil {
		return nil
	}
	return &Assignments{
		Main:      append([]string{}, a.Main...),
		Screening: append([]string{}, a.Screening...),
	}
}

// Event is the stored record for one port battle
type Event struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	BattleLimit int           `json:"br"`
	WaterDepth  string        `json:"water"`
	Created     int64         `json:"created"` // unix milliseconds
	Roster      []Participant `json:"roster"`
	Assignments *Assignments  `json:"assignments"` // nil until the first assign
	Version     int           `json:"assignVersion"`
}

// Metadata returns the editable fields of the event
func (e *Event) Metadata() Metadata {
	return Metadata{
		Name:        e.Name,
		Date:        e.Date,
		Time:        e.Time,
		BattleLimit: e.BattleLimit,
		WaterDepth:  e.WaterDepth,
	}
}

// ApplyMetadata overwrites the editable fields
func (e *Event) ApplyMetadata(m Metadata) {
	e.Name = m.Name
	e.Date = m.Date
	e.Time = m.Time
	e.BattleLimit = m.BattleLimit
	e.WaterDepth = m.WaterDepth
}

// HasParticipant reports whether name is on the roster (case-sensitive)
func (e *Event) HasParticipant(name string) bool {
	for _, p := range e.Roster {
		if p.Name == name {
			return true
		}
	}
	return false
}

// EventSummary is the list view of an event
type EventSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	BattleLimit int    `json:"br"`
	WaterDepth  string `json:"water"`
	Created     int64  `json:"created"`
}

// Summary returns the list view, defaulting a blank name
func (e *Event) Summary() EventSummary {
	name := e.Name
	if name == "" {
		name = "Unnamed PB"
	}
	return EventSummary{
		ID:          e.ID,
		Name:        name,
		Date:        e.Date,
		Time:        e.Time,
		BattleLimit: e.BattleLimit,
		WaterDepth:  e.WaterDepth,
		Created:     e.Created,
	}
}

// Snapshot is what push channels deliver for an event
type Snapshot struct {
	EventID     string       `json:"-"`
	Version     int          `json:"assignVersion"`
	Assignments *Assignments `json:"assignments"`
}

// AccessSecret is the shared officer password and its rotation counter
type AccessSecret struct {
	Password string `json:"password"`
	Version  int    `json:"version"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Change kinds reported to broadcasters
const (
	ChangeCreate   = "create"
	ChangeDelete   = "delete"
	ChangeSignup   = "signup"
	ChangeRemove   = "remove"
	ChangeWithdraw = "withdraw"
	ChangeAssign   = "assign"
	ChangeUpdate   = "update"
)

// Change describes one committed mutation of an event
type Change struct {
	Kind        string       `json:"kind"`
	EventID     string       `json:"eventId"`
	Version     int          `json:"assignVersion"`
	Assignments *Assignments `json:"assignments"`
	Deleted     bool         `json:"deleted,omitempty"`
}

// Snapshot returns the push payload for this change
func (c Change) Snapshot() Snapshot {
	return Snapshot{EventID: c.EventID, Version: c.Version, Assignments: c.Assignments}
}
