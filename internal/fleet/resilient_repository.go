package fleet

import (
	"context"

	"github.com/fleetops/fleetops/internal/resilience"
)

// ResilientRepository guards another Repository with a circuit breaker and
// retries. Not-found errors pass straight through and never trip the breaker.
type ResilientRepository struct {
	next  Repository
	guard *resilience.Guard
}

// NewResilientRepository wraps next. If cfg.Expected is nil, record-not-found
// errors are treated as expected outcomes.
func NewResilientRepository(next Repository, cfg resilience.GuardConfig) *ResilientRepository {
	if cfg.Expected == nil {
		cfg.Expected = IsNotFound
	}
	return &ResilientRepository{
		next:  next,
		guard: resilience.NewGuard(cfg),
	}
}

// Guard returns the guard protecting the repository, for health reporting.
func (r *ResilientRepository) Guard() *resilience.Guard {
	return r.guard
}

// GetVehicle retrieves a vehicle by ID.
func (r *ResilientRepository) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	return resilience.Execute(ctx, r.guard, func(ctx context.Context) (*Vehicle, error) {
		return r.next.GetVehicle(ctx, id)
	})
}

// ListVehicles retrieves all vehicles.
func (r *ResilientRepository) ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	return resilience.Execute(ctx, r.guard, r.next.ListVehicles)
}

// GetTrailer retrieves a trailer by ID.
func (r *ResilientRepository) GetTrailer(ctx context.Context, id string) (*Trailer, error) {
	return resilience.Execute(ctx, r.guard, func(ctx context.Context) (*Trailer, error) {
		return r.next.GetTrailer(ctx, id)
	})
}

// ListTrailers retrieves all trailers.
func (r *ResilientRepository) ListTrailers(ctx context.Context) ([]*Trailer, error) {
	return resilience.Execute(ctx, r.guard, r.next.ListTrailers)
}

// GetDriver retrieves a driver by ID.
func (r *ResilientRepository) GetDriver(ctx context.Context, id string) (*Driver, error) {
	return resilience.Execute(ctx, r.guard, func(ctx context.Context) (*Driver, error) {
		return r.next.GetDriver(ctx, id)
	})
}

// ListDrivers retrieves all drivers.
func (r *ResilientRepository) ListDrivers(ctx context.Context) ([]*Driver, error) {
	return resilience.Execute(ctx, r.guard, r.next.ListDrivers)
}

// ListDocuments retrieves compliance documents.
func (r *ResilientRepository) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error) {
	return resilience.Execute(ctx, r.guard, func(ctx context.Context) ([]*Document, error) {
		return r.next.ListDocuments(ctx, filter)
	})
}

// SaveCompatibilityCheck stores a compatibility evaluation.
func (r *ResilientRepository) SaveCompatibilityCheck(ctx context.Context, check *CompatibilityCheck) error {
	return resilience.Run(ctx, r.guard, func(ctx context.Context) error {
		return r.next.SaveCompatibilityCheck(ctx, check)
	})
}

// ListCompatibilityChecks retrieves evaluations, newest first.
func (r *ResilientRepository) ListCompatibilityChecks(ctx context.Context, filter CheckFilter) ([]*CompatibilityCheck, error) {
	return resilience.Execute(ctx, r.guard, func(ctx context.Context) ([]*CompatibilityCheck, error) {
		return r.next.ListCompatibilityChecks(ctx, filter)
	})
}

// Ping verifies the wrapped repository without retrying or tripping the breaker.
func (r *ResilientRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// Ensure ResilientRepository implements Repository interface.
var _ Repository = (*ResilientRepository)(nil)
