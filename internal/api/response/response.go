// Package response writes JSON, problem and download responses. Every
// writer echoes the request ID so clients can correlate with server logs.
package response

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetops/fleetops/internal/api/middleware"
	"github.com/fleetops/fleetops/internal/api/models"
)

func setRequestID(w http.ResponseWriter, r *http.Request) string {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set(middleware.RequestIDHeader, requestID)
	}
	return requestID
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a Problem+JSON error response for the current request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(setRequestID(w, r), detail, errors))
}

// ValidationFailed writes a 400 response listing the failed request fields.
func ValidationFailed(w http.ResponseWriter, r *http.Request, errors []models.FieldError) {
	BadRequest(w, r, "request validation failed", errors)
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(setRequestID(w, r), detail))
}

// Unprocessable writes a 422 response for records that cannot be evaluated.
func Unprocessable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewUnprocessable(setRequestID(w, r), detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(setRequestID(w, r), detail))
}

// ServiceUnavailable writes a 503 response. A positive retryAfter is sent
// as Retry-After in whole seconds.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int((retryAfter+time.Second-1)/time.Second)))
	}
	Error(w, r, models.NewServiceUnavailable(setRequestID(w, r), detail))
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Attachment writes a download with the given content type and file name.
// The body is produced by write after the headers are sent, so a write
// error can only be logged by the caller.
func Attachment(w http.ResponseWriter, r *http.Request, contentType, filename string, write func(io.Writer) error) error {
	setRequestID(w, r)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	return write(w)
}
