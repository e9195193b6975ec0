package handlers

import "github.com/abrezinsky/pbplanner/internal/models"

// OKResponse acknowledges a mutation that has no version
type OKResponse struct {
	OK bool `json:"ok"`
}

// CreateResponse is returned by create
type CreateResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// VersionResponse acknowledges a mutation with the event's new version
type VersionResponse struct {
	OK            bool `json:"ok"`
	AssignVersion int  `json:"assignVersion"`
}

// ConfigResponse is the public view of an event without its roster
type ConfigResponse struct {
	OK            bool                `json:"ok"`
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Date          string              `json:"date"`
	Time          string              `json:"time"`
	BR            int                 `json:"br"`
	Water         string              `json:"water"`
	Created       int64               `json:"created"`
	Assignments   *models.Assignments `json:"assignments"`
	AssignVersion int                 `json:"assignVersion"`
}

// FullResponse adds the roster to ConfigResponse
type FullResponse struct {
	ConfigResponse
	Roster []models.Participant `json:"roster"`
}

// OfficerVersionResponse reports the secret version
type OfficerVersionResponse struct {
	OK      bool `json:"ok"`
	Version int  `json:"version"`
}

func newConfigResponse(e *models.Event) ConfigResponse {
	return ConfigResponse{
		OK:            true,
		ID:            e.ID,
		Name:          e.Name,
		Date:          e.Date,
		Time:          e.Time,
		BR:            e.BattleLimit,
		Water:         e.WaterDepth,
		Created:       e.Created,
		Assignments:   e.Assignments,
		AssignVersion: e.Version,
	}
}

func newFullResponse(e *models.Event) FullResponse {
	roster := e.Roster
	if roster == nil {
		roster = []models.Participant{}
	}
	return FullResponse{ConfigResponse: newConfigResponse(e), Roster: roster}
}
