package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetops/internal/api/response"
	"github.com/fleetops/fleetops/internal/fleet"
	"github.com/fleetops/fleetops/internal/resilience"
)

// circuitRetryAfter matches the default open period of the store breaker.
const circuitRetryAfter = 30 * time.Second

// writeServiceError maps fleet service errors to problem responses.
// Unexpected errors are logged and reported as 500 with the given detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error, detail string) {
	switch {
	case fleet.IsNotFound(err):
		response.NotFound(w, r, err.Error())
	case fleet.IsInputError(err):
		response.Unprocessable(w, r, err.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		response.ServiceUnavailable(w, r, "fleet store temporarily unavailable", circuitRetryAfter)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg(detail)
		response.InternalError(w, r, detail)
	}
}
