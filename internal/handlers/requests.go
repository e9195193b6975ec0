package handlers

import (
	"strings"

	"github.com/abrezinsky/pbplanner/internal/models"
)

// ClientIDHeader identifies the browser that created a signup
const ClientIDHeader = "X-Client-ID"

// EventRequest is the body of create and update
type EventRequest struct {
	Name            string         `json:"name" validate:"notblank"`
	Date            string         `json:"date" validate:"notblank"`
	Time            string         `json:"time" validate:"notblank"`
	BR              models.FlexInt `json:"br"`
	Water           string         `json:"water" validate:"notblank"`
	ExpectedVersion *int           `json:"expectedVersion,omitempty"`
}

// Metadata converts the request into event metadata
func (r EventRequest) Metadata() models.Metadata {
	return models.Metadata{
		Name:        strings.TrimSpace(r.Name),
		Date:        strings.TrimSpace(r.Date),
		Time:        strings.TrimSpace(r.Time),
		BattleLimit: r.BR.Int(),
		WaterDepth:  strings.TrimSpace(r.Water),
	}
}

// SignupRequest is the body of a roster signup
type SignupRequest struct {
	Name      string         `json:"name" validate:"notblank"`
	Ship      string         `json:"ship" validate:"notblank"`
	BR        models.FlexInt `json:"br"`
	CreatedBy string         `json:"createdBy"`
}

// Participant converts the request, falling back to clientID for createdBy
func (r SignupRequest) Participant(clientID string) models.Participant {
	createdBy := strings.TrimSpace(r.CreatedBy)
	if createdBy == "" {
		createdBy = strings.TrimSpace(clientID)
	}
	return models.Participant{
		Name:      strings.TrimSpace(r.Name),
		Ship:      strings.TrimSpace(r.Ship),
		BR:        r.BR,
		CreatedBy: createdBy,
	}
}

// AssignRequest replaces both groups
type AssignRequest struct {
	Main            []string `json:"main"`
	Screening       []string `json:"screening"`
	ExpectedVersion *int     `json:"expectedVersion,omitempty"`
}

// PasswordCheckRequest is the body of an officer password check
type PasswordCheckRequest struct {
	Password string `json:"password"`
}

// PasswordChangeRequest rotates the officer password
type PasswordChangeRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword" validate:"notblank"`
}
