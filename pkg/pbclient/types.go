package pbclient

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
)

// Participant is one signed-up player
type Participant struct {
	Name      string `json:"name"`
	Ship      string `json:"ship"`
	BR        int    `json:"br"`
	CreatedBy string `json:"createdBy"`
}

// Assignments partitions roster names into the main and screening groups
type Assignments struct {
	Main      []string `json:"main"`
	Screening []string `json:"screening"`
}

func (a *Assignments) clone() *Assignments {
	if a == nil {
		return nil
	}
	return &Assignments{Main: slices.Clone(a.Main), Screening: slices.Clone(a.Screening)}
}

// EventSummary is one row of the event list
type EventSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	BR      int    `json:"br"`
	Water   string `json:"water"`
	Created int64  `json:"created"`
}

// EventInput is the officer-editable part of an event
type EventInput struct {
	Name  string `json:"name"`
	Date  string `json:"date"` // YYYY-MM-DD
	Time  string `json:"time"` // HH:MM, UTC
	BR    int    `json:"br"`
	Water string `json:"water"`
}

// Config is an event without its roster
type Config struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Date          string       `json:"date"`
	Time          string       `json:"time"`
	BR            int          `json:"br"`
	Water         string       `json:"water"`
	Created       int64        `json:"created"`
	Assignments   *Assignments `json:"assignments"`
	AssignVersion int          `json:"assignVersion"`
}

func (c *Config) clone() *Config {
	out := *c
	out.Assignments = c.Assignments.clone()
	return &out
}

// Full is an event with its roster
type Full struct {
	Config
	Roster []Participant `json:"roster"`
}

func (f *Full) clone() *Full {
	return &Full{Config: *f.Config.clone(), Roster: slices.Clone(f.Roster)}
}

// Participant looks up name in the roster
func (f *Full) Participant(name string) (Participant, bool) {
	for _, p := range f.Roster {
		if p.Name == name {
			return p, true
		}
	}
	return Participant{}, false
}

// snapshot is the payload of a stream frame
type snapshot struct {
	AssignVersion int          `json:"assignVersion"`
	Assignments   *Assignments `json:"assignments"`
}

type createResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type versionResponse struct {
	OK            bool `json:"ok"`
	AssignVersion int  `json:"assignVersion"`
}

type officerResponse struct {
	OK      bool `json:"ok"`
	Version int  `json:"version"`
}

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("pbplanner returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("pbplanner returned status %d: %s (%s)", e.Status, e.Message, e.Code)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsForbidden reports whether err is a 403 from the server
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsConflict reports whether err is a 409 from the server
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}

// CodeOf returns the server error code carried by err, or ""
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
