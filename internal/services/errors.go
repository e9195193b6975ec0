package services

import (
	"github.com/abrezinsky/pbplanner/internal/errors"
)

// API error codes carried by service errors
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeDuplicateName    = "DUPLICATE_NAME"
	CodeDuplicateCaptain = "DUPLICATE_CAPTAIN"
	CodeForbidden        = "FORBIDDEN"
	CodeVersionConflict  = "VERSION_CONFLICT"
)

// Service errors
var (
	ErrEventNotFound    = errors.NotFound("Not found").WithCode(CodeNotFound)
	ErrDuplicateName    = errors.Validation("Name already signed up").WithCode(CodeDuplicateName)
	ErrDuplicateCaptain = errors.Validation("Duplicate captain in both groups").WithCode(CodeDuplicateCaptain)
	ErrForbidden        = errors.Forbidden("Forbidden").WithCode(CodeForbidden)
	ErrVersionConflict  = errors.Conflict("Event changed since it was loaded").WithCode(CodeVersionConflict)
)

// required returns a validation error naming the first blank field
func required(fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			return errors.Validationf("%s is required", f[0]).WithCode(CodeValidation)
		}
	}
	return nil
}
