package fleet

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fleetops/fleetops/internal/compliance"
)

// Date is a calendar date in a fixture file. It accepts "2006-01-02" or a
// full RFC 3339 timestamp, quoted or not, so JSON documents parse too.
type Date struct {
	time.Time
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("line %d: invalid date %q", value.Line, value.Value)
}

type fixtureFile struct {
	Vehicles  []fixtureVehicle  `yaml:"vehicles"`
	Trailers  []fixtureTrailer  `yaml:"trailers"`
	Drivers   []fixtureDriver   `yaml:"drivers"`
	Documents []fixtureDocument `yaml:"documents"`
}

type fixtureVehicle struct {
	ID                         string `yaml:"id"`
	Make                       string `yaml:"make"`
	Model                      string `yaml:"model"`
	Year                       int    `yaml:"year"`
	VIN                        string `yaml:"vin"`
	LicensePlate               string `yaml:"licensePlate"`
	Province                   string `yaml:"province"`
	TowingCapacityKg           int    `yaml:"towingCapacityKg"`
	HitchClass                 int    `yaml:"hitchClass"`
	HasElectricBrakeController bool   `yaml:"hasElectricBrakeController"`
	Status                     string `yaml:"status"`
}

type fixtureTrailer struct {
	ID                              string `yaml:"id"`
	Type                            string `yaml:"type"`
	SerialNumber                    string `yaml:"serialNumber"`
	LicensePlate                    string `yaml:"licensePlate"`
	Province                        string `yaml:"province"`
	RequiredTowingCapacityKg        int    `yaml:"requiredTowingCapacityKg"`
	RequiredHitchClass              int    `yaml:"requiredHitchClass"`
	HasElectricBrakes               bool   `yaml:"hasElectricBrakes"`
	RequiresElectricBrakeController bool   `yaml:"requiresElectricBrakeController"`
	Status                          string `yaml:"status"`
}

type fixtureDriver struct {
	ID            string `yaml:"id"`
	EmployeeID    string `yaml:"employeeId"`
	FirstName     string `yaml:"firstName"`
	LastName      string `yaml:"lastName"`
	LicenseNumber string `yaml:"licenseNumber"`
	LicenseClass  string `yaml:"licenseClass"`
	LicenseExpiry Date   `yaml:"licenseExpiry"`
	Province      string `yaml:"province"`
	Status        string `yaml:"status"`
}

type fixtureDocument struct {
	ID             string `yaml:"id"`
	Type           string `yaml:"type"`
	DocumentNumber string `yaml:"documentNumber"`
	ExpiryDate     Date   `yaml:"expiryDate"`
	VehicleID      string `yaml:"vehicleId"`
	TrailerID      string `yaml:"trailerId"`
}

// LoadFixtureFile reads fleet records from a YAML or JSON file.
func LoadFixtureFile(path string) (Records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Records{}, fmt.Errorf("read fixture: %w", err)
	}
	records, err := ParseFixture(data)
	if err != nil {
		return Records{}, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseFixture decodes fleet records from YAML or JSON. Missing statuses
// default to ACTIVE.
func ParseFixture(data []byte) (Records, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Records{}, fmt.Errorf("parse fixture: %w", err)
	}

	var records Records
	seen := map[string]struct{}{}
	unique := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		key := kind + "/" + id
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate %s %q", kind, id)
		}
		seen[key] = struct{}{}
		return nil
	}

	for _, v := range f.Vehicles {
		if err := unique("vehicle", v.ID); err != nil {
			return Records{}, err
		}
		records.Vehicles = append(records.Vehicles, &Vehicle{
			ID:                         v.ID,
			Make:                       v.Make,
			Model:                      v.Model,
			Year:                       v.Year,
			VIN:                        v.VIN,
			LicensePlate:               v.LicensePlate,
			Province:                   v.Province,
			TowingCapacityKg:           v.TowingCapacityKg,
			HitchClass:                 v.HitchClass,
			HasElectricBrakeController: v.HasElectricBrakeController,
			Status:                     assetStatus(v.Status),
		})
	}

	for _, t := range f.Trailers {
		if err := unique("trailer", t.ID); err != nil {
			return Records{}, err
		}
		records.Trailers = append(records.Trailers, &Trailer{
			ID:                              t.ID,
			Type:                            t.Type,
			SerialNumber:                    t.SerialNumber,
			LicensePlate:                    t.LicensePlate,
			Province:                        t.Province,
			RequiredTowingCapacityKg:        t.RequiredTowingCapacityKg,
			RequiredHitchClass:              t.RequiredHitchClass,
			HasElectricBrakes:               t.HasElectricBrakes,
			RequiresElectricBrakeController: t.RequiresElectricBrakeController,
			Status:                          assetStatus(t.Status),
		})
	}

	for _, d := range f.Drivers {
		if err := unique("driver", d.ID); err != nil {
			return Records{}, err
		}
		status := compliance.DriverStatus(strings.ToUpper(d.Status))
		if status == "" {
			status = compliance.DriverActive
		}
		records.Drivers = append(records.Drivers, &Driver{
			ID:            d.ID,
			EmployeeID:    d.EmployeeID,
			FirstName:     d.FirstName,
			LastName:      d.LastName,
			LicenseNumber: d.LicenseNumber,
			LicenseClass:  d.LicenseClass,
			LicenseExpiry: d.LicenseExpiry.Time,
			Province:      d.Province,
			Status:        status,
		})
	}

	for _, d := range f.Documents {
		if err := unique("document", d.ID); err != nil {
			return Records{}, err
		}
		docType := compliance.DocumentType(strings.ToUpper(d.Type))
		if !docType.Valid() {
			return Records{}, fmt.Errorf("document %q: unknown type %q", d.ID, d.Type)
		}
		if d.VehicleID != "" && d.TrailerID != "" {
			return Records{}, fmt.Errorf("document %q: owned by both vehicle and trailer", d.ID)
		}
		records.Documents = append(records.Documents, &Document{
			ID:             d.ID,
			Type:           docType,
			DocumentNumber: d.DocumentNumber,
			ExpiryDate:     d.ExpiryDate.Time,
			VehicleID:      d.VehicleID,
			TrailerID:      d.TrailerID,
		})
	}

	return records, nil
}

func assetStatus(s string) AssetStatus {
	if s == "" {
		return AssetActive
	}
	return AssetStatus(strings.ToUpper(s))
}
