package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ErrorCode identifies an API error.
type ErrorCode string

// Error codes.
const (
	CodeInvalidBody    ErrorCode = "VALIDATION_001"
	CodeInvalidField   ErrorCode = "VALIDATION_002"
	CodeStaleVersion   ErrorCode = "SETTINGS_001"
	CodeNotFound       ErrorCode = "SYSTEM_001"
	CodeRateLimited    ErrorCode = "SYSTEM_002"
	CodeInternal       ErrorCode = "SYSTEM_003"
	CodeMethodRejected ErrorCode = "SYSTEM_004"
)

var errorMessages = map[ErrorCode]string{
	CodeInvalidBody:    "Request body is not valid JSON",
	CodeInvalidField:   "One or more fields are invalid",
	CodeStaleVersion:   "A newer version of these settings is already stored",
	CodeNotFound:       "Resource not found",
	CodeRateLimited:    "Too many requests",
	CodeInternal:       "Internal server error",
	CodeMethodRejected: "Method not allowed",
}

var errorStatus = map[ErrorCode]int{
	CodeInvalidBody:    http.StatusBadRequest,
	CodeInvalidField:   http.StatusBadRequest,
	CodeStaleVersion:   http.StatusConflict,
	CodeNotFound:       http.StatusNotFound,
	CodeRateLimited:    http.StatusTooManyRequests,
	CodeInternal:       http.StatusInternalServerError,
	CodeMethodRejected: http.StatusMethodNotAllowed,
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	TraceID string   `json:"trace_id"`
	Details []string `json:"details,omitempty"`
}

// APIError is returned by handlers to produce an ErrorResponse.
type APIError struct {
	Code    ErrorCode
	Details []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s %v", e.Code, errorMessages[e.Code], e.Details)
}

func newAPIError(code ErrorCode, details ...string) *APIError {
	return &APIError{Code: code, Details: details}
}

// NewErrorResponse builds the reply body for code.
func NewErrorResponse(code ErrorCode, traceID string, details ...string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{
		Code:    string(code),
		Message: errorMessages[code],
		TraceID: traceID,
		Details: details,
	}}
}

// HTTPStatus returns the status code sent with code.
func HTTPStatus(code ErrorCode) int {
	if s, ok := errorStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// errorHandler renders every error returned by a handler or middleware.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	traceID := TraceID(c)
	code := CodeInternal
	var details []string

	var apiErr *APIError
	var httpErr *echo.HTTPError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &apiErr):
		code, details = apiErr.Code, apiErr.Details
	case errors.As(err, &validationErrs):
		code = CodeInvalidField
		for _, fe := range validationErrs {
			details = append(details, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	case errors.As(err, &httpErr):
		code = codeForStatus(httpErr.Code)
		details = []string{fmt.Sprint(httpErr.Message)}
	}

	status := HTTPStatus(code)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(c.Request().Context(), level, "Request failed",
		"code", code,
		"status", status,
		"path", c.Path(),
		"trace_id", traceID,
		"error", err)

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, NewErrorResponse(code, traceID, details...))
}

func codeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return CodeInvalidBody
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodRejected
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusConflict:
		return CodeStaleVersion
	default:
		return CodeInternal
	}
}
