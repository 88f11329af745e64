package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cardlog/cardlog/internal/api/shared"
)

// ValidationErrorResponse is the 422 payload for failed request validation:
// a headline message plus per-field message lists, matching the wording the
// original web client was built against.
type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// RespondWithValidationError writes a 422 response describing the validation
// failure. Non-validator errors fall back to a single generic message.
func RespondWithValidationError(w http.ResponseWriter, r *http.Request, err error) {
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		shared.RespondWithJSON(w, r, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Message: "The given data was invalid.",
			Errors:  map[string][]string{},
		})
		return
	}

	errs := make(map[string][]string, len(fieldErrors))
	var first string
	for _, fe := range fieldErrors {
		msg := validationMessage(fe.Field(), fe.Tag(), fe.Param())
		if first == "" {
			first = msg
		}
		errs[fe.Field()] = append(errs[fe.Field()], msg)
	}

	shared.RespondWithJSON(w, r, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Message: first,
		Errors:  errs,
	})
}

// RespondWithFieldError writes a 422 response for a single field failure
// that did not come from struct validation (e.g. a non-integer path
// parameter).
func RespondWithFieldError(w http.ResponseWriter, r *http.Request, field, message string) {
	shared.RespondWithJSON(w, r, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Message: message,
		Errors:  map[string][]string{field: {message}},
	})
}

// IntegerFieldMessage renders the must-be-an-integer message for a field.
func IntegerFieldMessage(field string) string {
	return fmt.Sprintf("The %s field must be an integer.", fieldDisplayName(field))
}

// validationMessage renders one validator tag failure in the message format
// the clients expect ("The question field is required.").
func validationMessage(field, tag, param string) string {
	name := fieldDisplayName(field)
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", name, param)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", name, param)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "numeric", "integer":
		return IntegerFieldMessage(field)
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}

// fieldDisplayName turns a json field name into its message form:
// "audit_id" reads as "audit id".
func fieldDisplayName(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
