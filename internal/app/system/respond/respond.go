// Package respond writes the JSON envelope used by every API endpoint:
//
//	{ "success": bool, "message": string, "data": any, "error": string, "code": int }
//
// Callers treat success=false as authoritative regardless of status code.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// Envelope is the response shape for success and failure.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code"`
}

var exposeErrors atomic.Bool

// SetExposeErrors controls whether internal error text is included in
// failure envelopes. Only enable this in development.
func SetExposeErrors(v bool) { exposeErrors.Store(v) }

// JSON writes an arbitrary envelope with the given status.
func JSON(w http.ResponseWriter, status int, env Envelope) {
	env.Code = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Error maps err through the apperr taxonomy and writes a failure envelope.
// 5xx errors are logged with the request path; their text never leaves the
// process unless SetExposeErrors(true) was called.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := apperr.Status(err)
	env := Envelope{
		Success: false,
		Message: apperr.PublicMessage(err),
		Error:   apperr.Name(err),
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	if exposeErrors.Load() {
		env.Error = env.Error + ": " + err.Error()
	}
	JSON(w, status, env)
}

// Decode reads a JSON body into dst. Unknown fields, trailing data and
// oversized bodies are validation errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return apperr.Validation("", "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("", "request body is empty")
		}
		return apperr.Validation("", "malformed JSON body")
	}
	if dec.More() {
		return apperr.Validation("", "request body must contain a single JSON object")
	}
	return nil
}

// TooManyRequests writes a 429 envelope with a Retry-After hint in seconds.
func TooManyRequests(w http.ResponseWriter, message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	JSON(w, http.StatusTooManyRequests, Envelope{
		Message: message,
		Error:   "RateLimited",
	})
}
