// Package validation decodes and validates inbound request bodies.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/teilomillet/nbassist/server/processing"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// generateRequest distinguishes a missing key from an empty string.
type generateRequest struct {
	ErrorOutput *string `json:"errorOutput" validate:"required"`
	Code        *string `json:"code" validate:"required"`
	Language    *string `json:"language" validate:"required"`
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error is returned for any body that cannot be turned into a request.
type Error struct {
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// Details renders the field errors for an error response body.
func (e *Error) Details() map[string]interface{} {
	if len(e.Fields) == 0 {
		return nil
	}
	return map[string]interface{}{"errors": e.Fields}
}

// DecodeGenerateRequest reads a single JSON object from body. The
// errorOutput, code and language keys must all be present as strings;
// unknown keys are ignored.
func DecodeGenerateRequest(body io.Reader) (*processing.Request, error) {
	dec := json.NewDecoder(body)

	var raw generateRequest
	if err := dec.Decode(&raw); err != nil {
		return nil, decodeError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &Error{
			Message: "Invalid request body",
			Fields:  []FieldError{{Field: "body", Message: "unexpected data after JSON object", Code: "invalid_json"}},
		}
	}

	if err := validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate request: %w", err)
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("field '%s' is %s", fe.Field(), fe.Tag()),
				Code:    fe.Tag() + "_validation_failed",
			})
		}
		return nil, &Error{Message: "Request validation failed", Fields: fields}
	}

	return &processing.Request{
		ErrorOutput: *raw.ErrorOutput,
		Code:        *raw.Code,
		Language:    *raw.Language,
	}, nil
}

func decodeError(err error) *Error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return &Error{
			Message: "Invalid request body",
			Fields: []FieldError{{
				Field:   field,
				Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
				Code:    "invalid_type",
			}},
		}
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &Error{
			Message: "Invalid request body",
			Fields: []FieldError{{
				Field:   "body",
				Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
				Code:    "body_too_large",
			}},
		}
	}
	if errors.Is(err, io.EOF) {
		return &Error{
			Message: "Invalid request body",
			Fields:  []FieldError{{Field: "body", Message: "request body is empty", Code: "empty_body"}},
		}
	}
	return &Error{
		Message: "Invalid request body",
		Fields:  []FieldError{{Field: "body", Message: err.Error(), Code: "invalid_json"}},
	}
}
