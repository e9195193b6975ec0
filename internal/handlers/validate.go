package handlers

import (
	stderrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// validateRequest checks presence rules on a decoded request body. Only the
// first failing field is reported.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !stderrors.As(err, &vErrs) || len(vErrs) == 0 {
		return BadRequest("Invalid request")
	}

	fe := vErrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return NewAPIError(400, ErrCodeValidation, fe.Field()+" is required")
	default:
		return NewAPIError(400, ErrCodeValidation, fe.Field()+" is invalid")
	}
}
