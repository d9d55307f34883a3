package dto

import (
	"errors"
	"net/http"
	"sort"

	"cordfriend.app/server/internal/service"
	"github.com/go-playground/validator/v10"
)

const (
	MsgInternal     = "An internal server error occurred."
	MsgInvalidInput = "One or more required fields are missing or invalid."
)

type ErrorResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func NewError(message string, errs []FieldError) ErrorResponse {
	return ErrorResponse{Status: "error", Message: message, Errors: errs}
}

// FromServiceError maps a service error onto a status code and a body that is
// safe to return. Errors that are not *service.Error become a generic 500.
func FromServiceError(err error) (int, ErrorResponse) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		return http.StatusInternalServerError, NewError(MsgInternal, nil)
	}

	body := NewError(svcErr.Message, fieldErrors(svcErr.Fields))
	switch {
	case errors.Is(svcErr.Kind, service.ErrValidation):
		return http.StatusBadRequest, body
	case errors.Is(svcErr.Kind, service.ErrUnauthorized):
		return http.StatusUnauthorized, body
	case errors.Is(svcErr.Kind, service.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(svcErr.Kind, service.ErrConflict):
		return http.StatusConflict, body
	case errors.Is(svcErr.Kind, service.ErrUnavailable):
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, NewError(MsgInternal, nil)
	}
}

func fieldErrors(fields map[string]string) []FieldError {
	if len(fields) == 0 {
		return nil
	}
	out := make([]FieldError, 0, len(fields))
	for field, msg := range fields {
		out = append(out, FieldError{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// FromBindError describes a failed ShouldBindJSON. Validator failures are
// reported per field; anything else is a malformed body.
func FromBindError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewError("The request body could not be read.", nil)
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: jsonName(fe), Message: describeTag(fe)})
	}
	return NewError(MsgInvalidInput, out)
}

func jsonName(fe validator.FieldError) string {
	switch fe.Field() {
	case "OldPassword":
		return "old_password"
	case "NewPassword":
		return "new_password"
	case "ServerID":
		return "server_id"
	case "GoogleAIKey":
		return "google_ai_api"
	case "OpenWeatherKey":
		return "openweathermap_api"
	case "ImageFilename":
		return "image_filename"
	}
	return lowerFirst(fe.Field())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}
