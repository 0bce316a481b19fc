package fleet

import "context"

// DefaultHistoryLimit is the default number of compatibility checks listed.
const DefaultHistoryLimit = 10

// DocumentFilter narrows a document listing. Empty fields match everything.
type DocumentFilter struct {
	VehicleID string
	TrailerID string
}

// CheckFilter narrows a compatibility history listing.
type CheckFilter struct {
	VehicleID string
	TrailerID string
	Limit     int
}

// Repository defines the interface for fleet record access.
type Repository interface {
	// GetVehicle retrieves a vehicle by ID.
	GetVehicle(ctx context.Context, id string) (*Vehicle, error)

	// ListVehicles retrieves all vehicles.
	ListVehicles(ctx context.Context) ([]*Vehicle, error)

	// GetTrailer retrieves a trailer by ID.
	GetTrailer(ctx context.Context, id string) (*Trailer, error)

	// ListTrailers retrieves all trailers.
	ListTrailers(ctx context.Context) ([]*Trailer, error)

	// GetDriver retrieves a driver by ID.
	GetDriver(ctx context.Context, id string) (*Driver, error)

	// ListDrivers retrieves all drivers.
	ListDrivers(ctx context.Context) ([]*Driver, error)

	// ListDocuments retrieves compliance documents ordered by expiry date.
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error)

	// SaveCompatibilityCheck stores a compatibility evaluation.
	SaveCompatibilityCheck(ctx context.Context, check *CompatibilityCheck) error

	// ListCompatibilityChecks retrieves evaluations, newest first.
	ListCompatibilityChecks(ctx context.Context, filter CheckFilter) ([]*CompatibilityCheck, error)

	// Ping verifies the repository is reachable.
	Ping(ctx context.Context) error
}
