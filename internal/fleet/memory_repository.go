package fleet

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs tests, the CLI, and DATA_SOURCE=memory deployments.
type InMemoryRepository struct {
	mu        sync.RWMutex
	vehicles  map[string]*Vehicle
	trailers  map[string]*Trailer
	drivers   map[string]*Driver
	documents map[string]*Document
	checks    []*CompatibilityCheck
}

// NewInMemoryRepository creates a new empty in-memory fleet repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		vehicles:  make(map[string]*Vehicle),
		trailers:  make(map[string]*Trailer),
		drivers:   make(map[string]*Driver),
		documents: make(map[string]*Document),
	}
}

// Load replaces the stored records with records. History is kept.
func (r *InMemoryRepository) Load(records Records) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vehicles = make(map[string]*Vehicle, len(records.Vehicles))
	for _, v := range records.Vehicles {
		cpy := *v
		r.vehicles[v.ID] = &cpy
	}
	r.trailers = make(map[string]*Trailer, len(records.Trailers))
	for _, t := range records.Trailers {
		cpy := *t
		r.trailers[t.ID] = &cpy
	}
	r.drivers = make(map[string]*Driver, len(records.Drivers))
	for _, d := range records.Drivers {
		cpy := *d
		r.drivers[d.ID] = &cpy
	}
	r.documents = make(map[string]*Document, len(records.Documents))
	for _, d := range records.Documents {
		cpy := *d
		r.documents[d.ID] = &cpy
	}
}

// PutVehicle creates or replaces a vehicle.
func (r *InMemoryRepository) PutVehicle(v *Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *v
	r.vehicles[v.ID] = &cpy
}

// PutTrailer creates or replaces a trailer.
func (r *InMemoryRepository) PutTrailer(t *Trailer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *t
	r.trailers[t.ID] = &cpy
}

// PutDriver creates or replaces a driver.
func (r *InMemoryRepository) PutDriver(d *Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *d
	r.drivers[d.ID] = &cpy
}

// PutDocument creates or replaces a document.
func (r *InMemoryRepository) PutDocument(d *Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cpy := *d
	r.documents[d.ID] = &cpy
}

// GetVehicle retrieves a vehicle by ID.
func (r *InMemoryRepository) GetVehicle(_ context.Context, id string) (*Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[id]
	if !ok {
		return nil, ErrVehicleNotFound
	}
	cpy := *v
	return &cpy, nil
}

// ListVehicles retrieves all vehicles ordered by ID.
func (r *InMemoryRepository) ListVehicles(_ context.Context) ([]*Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		cpy := *v
		out = append(out, &cpy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetTrailer retrieves a trailer by ID.
func (r *InMemoryRepository) GetTrailer(_ context.Context, id string) (*Trailer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trailers[id]
	if !ok {
		return nil, ErrTrailerNotFound
	}
	cpy := *t
	return &cpy, nil
}

// ListTrailers retrieves all trailers ordered by ID.
func (r *InMemoryRepository) ListTrailers(_ context.Context) ([]*Trailer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Trailer, 0, len(r.trailers))
	for _, t := range r.trailers {
		cpy := *t
		out = append(out, &cpy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetDriver retrieves a driver by ID.
func (r *InMemoryRepository) GetDriver(_ context.Context, id string) (*Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	cpy := *d
	return &cpy, nil
}

// ListDrivers retrieves all drivers ordered by ID.
func (r *InMemoryRepository) ListDrivers(_ context.Context) ([]*Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		cpy := *d
		out = append(out, &cpy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListDocuments retrieves documents ordered by expiry date, then ID.
func (r *InMemoryRepository) ListDocuments(_ context.Context, filter DocumentFilter) ([]*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Document, 0, len(r.documents))
	for _, d := range r.documents {
		if filter.VehicleID != "" && d.VehicleID != filter.VehicleID {
			continue
		}
		if filter.TrailerID != "" && d.TrailerID != filter.TrailerID {
			continue
		}
		cpy := *d
		out = append(out, &cpy)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveCompatibilityCheck stores a compatibility evaluation.
func (r *InMemoryRepository) SaveCompatibilityCheck(_ context.Context, check *CompatibilityCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checks = append(r.checks, check.Clone())
	return nil
}

// ListCompatibilityChecks retrieves evaluations, newest first.
func (r *InMemoryRepository) ListCompatibilityChecks(_ context.Context, filter CheckFilter) ([]*CompatibilityCheck, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var out []*CompatibilityCheck
	for i := len(r.checks) - 1; i >= 0; i-- {
		c := r.checks[i]
		if filter.VehicleID != "" && c.VehicleID != filter.VehicleID {
			continue
		}
		if filter.TrailerID != "" && c.TrailerID != filter.TrailerID {
			continue
		}
		out = append(out, c.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckedAt.After(out[j].CheckedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(_ context.Context) error {
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
