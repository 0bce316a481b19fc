package fleet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL fleet repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const vehicleColumns = `
	id, make, model, year, COALESCE(vin, ''), license_plate, province,
	towing_capacity_kg, hitch_class, has_electric_brake_controller,
	status, created_at, updated_at
`

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	var v Vehicle
	err := row.Scan(
		&v.ID,
		&v.Make,
		&v.Model,
		&v.Year,
		&v.VIN,
		&v.LicensePlate,
		&v.Province,
		&v.TowingCapacityKg,
		&v.HitchClass,
		&v.HasElectricBrakeController,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVehicle retrieves a vehicle by ID.
func (r *PostgresRepository) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	v, err := scanVehicle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListVehicles retrieves all vehicles ordered by ID.
func (r *PostgresRepository) ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

const trailerColumns = `
	id, type, serial_number, COALESCE(license_plate, ''), province,
	required_towing_capacity_kg, required_hitch_class, has_electric_brakes,
	requires_electric_brake_controller, status, created_at, updated_at
`

func scanTrailer(row pgx.Row) (*Trailer, error) {
	var t Trailer
	err := row.Scan(
		&t.ID,
		&t.Type,
		&t.SerialNumber,
		&t.LicensePlate,
		&t.Province,
		&t.RequiredTowingCapacityKg,
		&t.RequiredHitchClass,
		&t.HasElectricBrakes,
		&t.RequiresElectricBrakeController,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTrailer retrieves a trailer by ID.
func (r *PostgresRepository) GetTrailer(ctx context.Context, id string) (*Trailer, error) {
	query := `SELECT ` + trailerColumns + ` FROM trailers WHERE id = $1`

	t, err := scanTrailer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrailerNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListTrailers retrieves all trailers ordered by ID.
func (r *PostgresRepository) ListTrailers(ctx context.Context) ([]*Trailer, error) {
	query := `SELECT ` + trailerColumns + ` FROM trailers ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trailers []*Trailer
	for rows.Next() {
		t, err := scanTrailer(rows)
		if err != nil {
			return nil, err
		}
		trailers = append(trailers, t)
	}
	return trailers, rows.Err()
}

const driverColumns = `
	id, employee_id, first_name, last_name, license_number, license_class,
	license_expiry, province, status, created_at, updated_at
`

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	err := row.Scan(
		&d.ID,
		&d.EmployeeID,
		&d.FirstName,
		&d.LastName,
		&d.LicenseNumber,
		&d.LicenseClass,
		&d.LicenseExpiry,
		&d.Province,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDriver retrieves a driver by ID.
func (r *PostgresRepository) GetDriver(ctx context.Context, id string) (*Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	d, err := scanDriver(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListDrivers retrieves all drivers ordered by ID.
func (r *PostgresRepository) ListDrivers(ctx context.Context) ([]*Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// ListDocuments retrieves documents ordered by expiry date, then ID.
func (r *PostgresRepository) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error) {
	query := `
		SELECT
			id, type, COALESCE(document_number, ''), expiry_date,
			COALESCE(vehicle_id, ''), COALESCE(trailer_id, ''), created_at
		FROM compliance_documents
		WHERE ($1 = '' OR vehicle_id = $1)
		  AND ($2 = '' OR trailer_id = $2)
		ORDER BY expiry_date, id
	`

	rows, err := r.pool.Query(ctx, query, filter.VehicleID, filter.TrailerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(
			&d.ID,
			&d.Type,
			&d.DocumentNumber,
			&d.ExpiryDate,
			&d.VehicleID,
			&d.TrailerID,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		documents = append(documents, &d)
	}
	return documents, rows.Err()
}

// SaveCompatibilityCheck stores a compatibility evaluation.
func (r *PostgresRepository) SaveCompatibilityCheck(ctx context.Context, check *CompatibilityCheck) error {
	query := `
		INSERT INTO compatibility_checks (
			id, vehicle_id, trailer_id, province, status, can_tow,
			capacity_margin_kg, capacity_utilization_percent,
			issues, warnings, recommendations, provincial_requirements,
			checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		check.ID,
		check.VehicleID,
		check.TrailerID,
		check.Province,
		check.Status,
		check.CanTow,
		check.CapacityMarginKg,
		check.CapacityUtilizationPercent,
		check.Issues,
		check.Warnings,
		check.Recommendations,
		check.ProvincialRequirements,
		check.CheckedAt,
	)
	return err
}

// ListCompatibilityChecks retrieves evaluations, newest first.
func (r *PostgresRepository) ListCompatibilityChecks(ctx context.Context, filter CheckFilter) ([]*CompatibilityCheck, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT
			id, vehicle_id, trailer_id, province, status, can_tow,
			capacity_margin_kg, capacity_utilization_percent,
			issues, warnings, recommendations, provincial_requirements,
			checked_at
		FROM compatibility_checks
		WHERE ($1 = '' OR vehicle_id = $1)
		  AND ($2 = '' OR trailer_id = $2)
		ORDER BY checked_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, filter.VehicleID, filter.TrailerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []*CompatibilityCheck
	for rows.Next() {
		var c CompatibilityCheck
		if err := rows.Scan(
			&c.ID,
			&c.VehicleID,
			&c.TrailerID,
			&c.Province,
			&c.Status,
			&c.CanTow,
			&c.CapacityMarginKg,
			&c.CapacityUtilizationPercent,
			&c.Issues,
			&c.Warnings,
			&c.Recommendations,
			&c.ProvincialRequirements,
			&c.CheckedAt,
		); err != nil {
			return nil, err
		}
		checks = append(checks, &c)
	}
	return checks, rows.Err()
}

// Ping verifies the database connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
