package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "vitalreg/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode unmarshals the JSON body into T and runs struct validation.
// Failures come back as a validation error carrying field-level detail.
func Decode[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "internal server error")
		}
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fieldName(fe)] = constraintMessage(fe)
			}
		}
		return nil, dErrors.NewValidation("Validation failed", fields)
	}
	return &req, nil
}

func fieldName(fe validator.FieldError) string {
	// Strip the struct name prefix, keep the JSON-ish path.
	parts := strings.SplitN(fe.Namespace(), ".", 2)
	if len(parts) == 2 {
		return strings.ToLower(parts[1][:1]) + parts[1][1:]
	}
	return fe.Field()
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must be a date in " + fe.Param() + " format"
	default:
		return "is invalid"
	}
}
