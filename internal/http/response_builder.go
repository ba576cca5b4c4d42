// Package http provides the JSON API server and its handlers.
//
// This file implements the builder used by every handler to write JSON
// envelopes. Success bodies are {"data": ...} or {"message": ...}; failures
// are {"error": ..., "details": ...}.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type messageEnvelope struct {
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Data wraps v in the data envelope.
func (b *ResponseBuilder) Data(v any) *ResponseBuilder {
	b.payload = dataEnvelope{Data: v}
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.payload = messageEnvelope{Message: msg}
	return b
}

// Raw sends v without an envelope.
func (b *ResponseBuilder) Raw(v any) *ResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode response", "error", err, "status", b.statusCode)
	}
}

// ErrorResponse creates a standard error response. details may be empty.
func ErrorResponse(statusCode int, message, details string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		Raw(errorEnvelope{Error: message, Details: details})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message, "")
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message, "")
}

func ConflictError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusConflict, message, "")
}

// InternalServerError creates a 500 response carrying the cause as details.
func InternalServerError(details string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error", details)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", "").
		Header("Allow", allowedMethods)
}

// TooManyRequestsError is the rate limiter rejection. Retry-After is set by
// the limiter.
func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "")
}
