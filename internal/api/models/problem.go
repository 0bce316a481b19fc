package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError names one request field that failed validation. Field uses
// the JSON path, such as "vehicle.towingCapacityKg".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs.
const (
	ProblemTypeValidation      = "https://api.fleetops.io/problems/validation-error"
	ProblemTypeNotFound        = "https://api.fleetops.io/problems/not-found"
	ProblemTypeUnprocessable   = "https://api.fleetops.io/problems/unprocessable-record"
	ProblemTypeUnsupportedType = "https://api.fleetops.io/problems/unsupported-media-type"
	ProblemTypeTooManyRequests = "https://api.fleetops.io/problems/too-many-requests"
	ProblemTypeTLSRequired     = "https://api.fleetops.io/problems/tls-required"
	ProblemTypeInternal        = "https://api.fleetops.io/problems/internal-error"
	ProblemTypeUnavailable     = "https://api.fleetops.io/problems/service-unavailable"
)

// NewProblem creates a Problem without detail.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// Write sends the Problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func detailed(problemType, title string, status int, traceID, detail string) *Problem {
	p := NewProblem(problemType, title, status, traceID)
	p.Detail = detail
	return p
}

// NewBadRequest creates a 400 problem for malformed or invalid requests.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := detailed(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

// NewNotFound creates a 404 problem for an unknown vehicle, trailer,
// driver or province.
func NewNotFound(traceID, detail string) *Problem {
	return detailed(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID, detail)
}

// NewUnprocessable creates a 422 problem for stored records the engines
// cannot evaluate, such as a vehicle without a towing capacity.
func NewUnprocessable(traceID, detail string) *Problem {
	return detailed(ProblemTypeUnprocessable, "Unprocessable record", http.StatusUnprocessableEntity, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return detailed(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return detailed(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID, detail)
}

// NewServiceUnavailable creates a 503 problem, used while the fleet store
// is unreachable or its circuit is open.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return detailed(ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, traceID, detail)
}
