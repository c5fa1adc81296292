package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/NU-Formula-Racing/daq-interface-25/internal/errors"
)

// jsonBodyLimit bounds JSON request bodies. File uploads travel as
// multipart and are bounded separately by the handler.
const jsonBodyLimit = 1 << 20

// ValidationMiddleware gates request bodies and validates decoded structs
// against their validate tags.
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewValidationMiddleware registers the plot-specific validators on top of
// the standard tag set.
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New()
	v.RegisterValidation("filename", isValidFilename)
	v.RegisterValidation("plotfield", isValidPlotField)
	v.RegisterValidation("rendermode", isValidRenderMode)

	// Error messages should name the JSON field, not the Go field.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
	}
}

// ValidateRequest rejects oversized or syntactically invalid JSON bodies
// before they reach a handler. Reads with no body semantics (GET, HEAD,
// OPTIONS) and multipart uploads pass through untouched.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > jsonBodyLimit {
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Request body exceeds maximum allowed size",
				map[string]interface{}{"max_size": jsonBodyLimit, "size": r.ContentLength},
			))
			return
		}

		if r.Body != nil && r.ContentLength > 0 {
			body, err := io.ReadAll(io.LimitReader(r.Body, jsonBodyLimit))
			if err != nil {
				m.logger.ErrorContext(r.Context(), "request body read failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetReqID(r.Context())),
				)
				m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}
			// Hand the handler a fresh reader over the same bytes.
			r.Body = io.NopCloser(bytes.NewReader(body))

			if len(body) > 0 && !json.Valid(body) {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest, "INVALID_JSON",
					"Request body contains invalid JSON",
				))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateStruct runs tag validation and folds failures into one
// field-keyed validation error.
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	failures := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: describeFailure(fe),
		})
	}
	return apierrors.NewValidationErrors(failures)
}

// RequireContentType rejects writes whose Content-Type matches none of the
// given prefixes. Reads and deletes carry no body and always pass.
func (m *ValidationMiddleware) RequireContentType(prefixes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			if ct == "" {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest, "MISSING_CONTENT_TYPE",
					"Content-Type header is required",
				))
				return
			}
			for _, prefix := range prefixes {
				if strings.HasPrefix(ct, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{"content_type": ct, "allowed": prefixes},
			))
		})
	}
}

// describeFailure renders one tag failure as a user-facing message.
func describeFailure(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "filename":
		return fmt.Sprintf("%s must be a plain file name", fe.Field())
	case "plotfield":
		return fmt.Sprintf("%s must be one of: source, x_column, y_column, mode", fe.Field())
	case "rendermode":
		return fmt.Sprintf("%s must be one of: line, scatter", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// isValidFilename rejects empty names, path separators, and traversal.
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 255 {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// isValidPlotField accepts the spec fields a slot update may target.
func isValidPlotField(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "source", "x_column", "y_column", "mode":
		return true
	}
	return false
}

// isValidRenderMode accepts the supported chart modes.
func isValidRenderMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "line", "scatter":
		return true
	}
	return false
}

// QueryParamValidator answers bad query parameters with problem JSON so
// handlers can bail with a bare return.
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator builds a query parameter validator.
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt parses an integer parameter within [min, max]. A missing
// parameter yields defaultValue. The second result reports whether the
// caller may proceed; on false the response has already been written.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param,
			fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}
	if n < min || n > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param,
			fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}
	return n, true
}

// ValidateEnum checks a parameter against an allow list. A missing
// parameter yields defaultValue.
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue, true
	}

	for _, candidate := range allowed {
		if raw == candidate {
			return raw, true
		}
	}
	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param,
		fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
