// Package fleet provides the fleet record source and the services that feed
// those records to the compatibility and compliance engines.
package fleet

import (
	"errors"
	"time"

	"github.com/fleetops/fleetops/internal/compatibility"
	"github.com/fleetops/fleetops/internal/compliance"
)

// Repository errors.
var (
	ErrVehicleNotFound  = errors.New("vehicle not found")
	ErrTrailerNotFound  = errors.New("trailer not found")
	ErrDriverNotFound   = errors.New("driver not found")
	ErrUnknownAssetType = errors.New("unknown asset type")
)

// IsNotFound reports whether err is one of the record-not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVehicleNotFound) ||
		errors.Is(err, ErrTrailerNotFound) ||
		errors.Is(err, ErrDriverNotFound)
}

// AssetStatus is the lifecycle status of a vehicle or trailer.
type AssetStatus string

// Asset statuses.
const (
	AssetActive      AssetStatus = "ACTIVE"
	AssetMaintenance AssetStatus = "MAINTENANCE"
	AssetRetired     AssetStatus = "RETIRED"
)

// Vehicle is a stored fleet vehicle.
type Vehicle struct {
	ID                         string
	Make                       string
	Model                      string
	Year                       int
	VIN                        string
	LicensePlate               string
	Province                   string
	TowingCapacityKg           int
	HitchClass                 int
	HasElectricBrakeController bool
	Status                     AssetStatus
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// Retired reports whether the vehicle is out of service for good.
func (v *Vehicle) Retired() bool {
	return v.Status == AssetRetired
}

// CompatibilityRecord returns the vehicle as seen by the compatibility engine.
func (v *Vehicle) CompatibilityRecord() compatibility.Vehicle {
	return compatibility.Vehicle{
		ID:                         v.ID,
		Make:                       v.Make,
		Model:                      v.Model,
		Year:                       v.Year,
		TowingCapacityKg:           v.TowingCapacityKg,
		HitchClass:                 v.HitchClass,
		HasElectricBrakeController: v.HasElectricBrakeController,
	}
}

// ComplianceRecord returns the vehicle as seen by the compliance engine.
func (v *Vehicle) ComplianceRecord() compliance.Vehicle {
	return compliance.Vehicle{
		ID:           v.ID,
		Make:         v.Make,
		Model:        v.Model,
		LicensePlate: v.LicensePlate,
		Province:     v.Province,
	}
}

// Trailer is a stored fleet trailer.
type Trailer struct {
	ID                              string
	Type                            string
	SerialNumber                    string
	LicensePlate                    string
	Province                        string
	RequiredTowingCapacityKg        int
	RequiredHitchClass              int
	HasElectricBrakes               bool
	RequiresElectricBrakeController bool
	Status                          AssetStatus
	CreatedAt                       time.Time
	UpdatedAt                       time.Time
}

// Retired reports whether the trailer is out of service for good.
func (t *Trailer) Retired() bool {
	return t.Status == AssetRetired
}

// CompatibilityRecord returns the trailer as seen by the compatibility engine.
func (t *Trailer) CompatibilityRecord() compatibility.Trailer {
	return compatibility.Trailer{
		ID:                              t.ID,
		Type:                            t.Type,
		RequiredTowingCapacityKg:        t.RequiredTowingCapacityKg,
		RequiredHitchClass:              t.RequiredHitchClass,
		HasElectricBrakes:               t.HasElectricBrakes,
		RequiresElectricBrakeController: t.RequiresElectricBrakeController,
	}
}

// ComplianceRecord returns the trailer as seen by the compliance engine.
func (t *Trailer) ComplianceRecord() compliance.Trailer {
	return compliance.Trailer{
		ID:           t.ID,
		Type:         t.Type,
		SerialNumber: t.SerialNumber,
		Province:     t.Province,
	}
}

// Driver is a stored driver.
type Driver struct {
	ID            string
	EmployeeID    string
	FirstName     string
	LastName      string
	LicenseNumber string
	LicenseClass  string
	LicenseExpiry time.Time
	Province      string
	Status        compliance.DriverStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ComplianceRecord returns the driver as seen by the compliance engine.
func (d *Driver) ComplianceRecord() compliance.Driver {
	return compliance.Driver{
		ID:            d.ID,
		EmployeeID:    d.EmployeeID,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Status:        d.Status,
		LicenseExpiry: d.LicenseExpiry,
		Province:      d.Province,
	}
}

// Document is a stored compliance document.
type Document struct {
	ID             string
	Type           compliance.DocumentType
	DocumentNumber string
	ExpiryDate     time.Time
	VehicleID      string
	TrailerID      string
	CreatedAt      time.Time
}

// CompatibilityCheck is a saved compatibility evaluation.
type CompatibilityCheck struct {
	ID                         string               `json:"id"`
	VehicleID                  string               `json:"vehicleId"`
	TrailerID                  string               `json:"trailerId"`
	Province                   string               `json:"province,omitempty"`
	Status                     compatibility.Status `json:"status"`
	CanTow                     bool                 `json:"canTow"`
	CapacityMarginKg           int                  `json:"capacityMarginKg"`
	CapacityUtilizationPercent float64              `json:"capacityUtilizationPercent"`
	Issues                     []string             `json:"issues"`
	Warnings                   []string             `json:"warnings"`
	Recommendations            []string             `json:"recommendations"`
	ProvincialRequirements     []string             `json:"provincialRequirements"`
	CheckedAt                  time.Time            `json:"checkedAt"`
}

// Clone returns a deep copy of c.
func (c *CompatibilityCheck) Clone() *CompatibilityCheck {
	cpy := *c
	cpy.Issues = append([]string(nil), c.Issues...)
	cpy.Warnings = append([]string(nil), c.Warnings...)
	cpy.Recommendations = append([]string(nil), c.Recommendations...)
	cpy.ProvincialRequirements = append([]string(nil), c.ProvincialRequirements...)
	return &cpy
}

// Records is a full snapshot of the fleet.
type Records struct {
	Vehicles  []*Vehicle
	Trailers  []*Trailer
	Drivers   []*Driver
	Documents []*Document
}
