// Package compliance turns fleet document and driver license records into
// expiry-driven renewal alerts, fleet-wide compliance status, a 12-month
// renewal timeline, and provincial requirement checks.
package compliance

import (
	"strings"
	"time"
	"unicode"
)

// RenewalHorizonDays is how far ahead renewals are surfaced as alerts.
const RenewalHorizonDays = 90

// TimelineMonths is the number of calendar months in a renewal timeline.
const TimelineMonths = 12

// DocumentType is the kind of a compliance document.
type DocumentType string

// Document types.
const (
	DocumentInsurance        DocumentType = "INSURANCE"
	DocumentRegistration     DocumentType = "REGISTRATION"
	DocumentInspection       DocumentType = "INSPECTION"
	DocumentCommercialPermit DocumentType = "COMMERCIAL_PERMIT"
	DocumentSpecialPermit    DocumentType = "SPECIAL_PERMIT"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentInsurance, DocumentRegistration, DocumentInspection, DocumentCommercialPermit, DocumentSpecialPermit:
		return true
	default:
		return false
	}
}

// DisplayName returns the human readable type, e.g. "Commercial Permit".
func (t DocumentType) DisplayName() string {
	s := strings.ToLower(strings.Replace(string(t), "_", " ", 1))

	var b strings.Builder
	b.Grow(len(s))
	atWordStart := true
	for _, r := range s {
		if atWordStart && unicode.IsLetter(r) {
			r = unicode.ToUpper(r)
		}
		atWordStart = !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
		b.WriteRune(r)
	}
	return b.String()
}

// AlertType classifies a renewal alert.
type AlertType string

// Alert types.
const (
	AlertDocument     AlertType = "DOCUMENT"
	AlertLicense      AlertType = "LICENSE"
	AlertRegistration AlertType = "REGISTRATION"
	AlertInspection   AlertType = "INSPECTION"
	AlertInsurance    AlertType = "INSURANCE"
)

// AssetType identifies what kind of asset an alert belongs to.
type AssetType string

// Asset types.
const (
	AssetVehicle AssetType = "VEHICLE"
	AssetTrailer AssetType = "TRAILER"
	AssetDriver  AssetType = "DRIVER"
)

// Valid reports whether t is a known asset type.
func (t AssetType) Valid() bool {
	switch t {
	case AssetVehicle, AssetTrailer, AssetDriver:
		return true
	default:
		return false
	}
}

// Priority is the urgency of a renewal.
type Priority string

// Priorities, most urgent first.
const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Band is the compliance color of a renewal or asset.
type Band string

// Bands.
const (
	BandGreen Band = "green"
	BandAmber Band = "amber"
	BandRed   Band = "red"
)

func (b Band) severity() int {
	switch b {
	case BandRed:
		return 2
	case BandAmber:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of b and other.
func (b Band) Worse(other Band) Band {
	if other.severity() > b.severity() {
		return other
	}
	return b
}

// Overall is the fleet-wide compliance verdict.
type Overall string

// Overall verdicts.
const (
	OverallCompliant Overall = "COMPLIANT"
	OverallWarning   Overall = "WARNING"
	OverallCritical  Overall = "CRITICAL"
)

// DriverStatus is the employment status of a driver. Only active drivers are
// tracked for license renewals.
type DriverStatus string

// Driver statuses.
const (
	DriverActive    DriverStatus = "ACTIVE"
	DriverInactive  DriverStatus = "INACTIVE"
	DriverSuspended DriverStatus = "SUSPENDED"
)

// Vehicle is the compliance view of a vehicle.
type Vehicle struct {
	ID           string `json:"id"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	LicensePlate string `json:"licensePlate"`
	Province     string `json:"province"`
}

// DisplayName returns "<make> <model> (<plate>)".
func (v Vehicle) DisplayName() string {
	return v.Make + " " + v.Model + " (" + v.LicensePlate + ")"
}

// Trailer is the compliance view of a trailer.
type Trailer struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	SerialNumber string `json:"serialNumber"`
	Province     string `json:"province"`
}

// DisplayName returns "<type> Trailer (<serial>)".
func (t Trailer) DisplayName() string {
	return t.Type + " Trailer (" + t.SerialNumber + ")"
}

// Document is a compliance document owned by a vehicle, a trailer, or
// neither. Vehicle and Trailer optionally embed the owning record.
type Document struct {
	ID             string       `json:"id"`
	Type           DocumentType `json:"type"`
	DocumentNumber string       `json:"documentNumber,omitempty"`
	ExpiryDate     time.Time    `json:"expiryDate"`
	VehicleID      string       `json:"vehicleId,omitempty"`
	TrailerID      string       `json:"trailerId,omitempty"`
	Vehicle        *Vehicle     `json:"vehicle,omitempty"`
	Trailer        *Trailer     `json:"trailer,omitempty"`
}

// Driver is the compliance view of a driver.
type Driver struct {
	ID            string       `json:"id"`
	EmployeeID    string       `json:"employeeId"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Status        DriverStatus `json:"status"`
	LicenseExpiry time.Time    `json:"licenseExpiry"`
	Province      string       `json:"province"`
}

// FullName returns "<first> <last>".
func (d Driver) FullName() string {
	return d.FirstName + " " + d.LastName
}

// DisplayName returns "<first> <last> (<employeeId>)".
func (d Driver) DisplayName() string {
	return d.FullName() + " (" + d.EmployeeID + ")"
}

// RenewalAlert is a document or license that is expired or expiring within
// the renewal horizon.
type RenewalAlert struct {
	ID              string    `json:"id"`
	Type            AlertType `json:"type"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	AssetType       AssetType `json:"assetType"`
	AssetID         string    `json:"assetId"`
	AssetName       string    `json:"assetName"`
	ExpiryDate      time.Time `json:"expiryDate"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
	Priority        Priority  `json:"priority"`
	Status          Band      `json:"status"`
	ActionRequired  string    `json:"actionRequired,omitempty"`
	DocumentID      string    `json:"documentId,omitempty"`
}

// Status is the aggregate compliance of a set of assets.
type Status struct {
	Overall           Overall        `json:"overall"`
	TotalAssets       int            `json:"totalAssets"`
	CompliantAssets   int            `json:"compliantAssets"`
	WarningAssets     int            `json:"warningAssets"`
	CriticalAssets    int            `json:"criticalAssets"`
	ExpiringDocuments int            `json:"expiringDocuments"`
	ExpiredDocuments  int            `json:"expiredDocuments"`
	UpcomingRenewals  []RenewalAlert `json:"upcomingRenewals"`
}

// TimelineMonth is one calendar month of a renewal timeline.
type TimelineMonth struct {
	Month    string         `json:"month"`
	Start    time.Time      `json:"start"`
	Renewals []RenewalAlert `json:"renewals"`
}

// PriorityGroups partitions alerts by priority. All keeps every alert in its
// original order.
type PriorityGroups struct {
	Critical []RenewalAlert `json:"critical"`
	High     []RenewalAlert `json:"high"`
	Medium   []RenewalAlert `json:"medium"`
	Low      []RenewalAlert `json:"low"`
	All      []RenewalAlert `json:"all"`
}

// Requirement is one mandatory document of a province.
type Requirement struct {
	ProvinceCode        string       `json:"provinceCode"`
	Province            string       `json:"province"`
	Requirement         string       `json:"requirement"`
	DocumentType        DocumentType `json:"documentType"`
	RenewalPeriodMonths int          `json:"renewalPeriod"`
	WarningPeriodDays   []int        `json:"warningPeriods"`
	Mandatory           bool         `json:"isMandatory"`
}

// RequirementValidation reports whether a requirement is met by a currently
// valid document.
type RequirementValidation struct {
	Requirement      Requirement `json:"requirement"`
	HasValidDocument bool        `json:"hasValidDocument"`
	Document         *Document   `json:"document,omitempty"`
}

// BandCounts is the number of assets per band.
type BandCounts struct {
	Total     int `json:"total"`
	Compliant int `json:"compliant"`
	Warning   int `json:"warning"`
	Critical  int `json:"critical"`
}

func (c *BandCounts) add(b Band) {
	switch b {
	case BandRed:
		c.Critical++
	case BandAmber:
		c.Warning++
	default:
		c.Compliant++
	}
}

// AssetTypeBreakdown is the band distribution per asset type.
type AssetTypeBreakdown struct {
	Vehicles BandCounts `json:"vehicles"`
	Trailers BandCounts `json:"trailers"`
	Drivers  BandCounts `json:"drivers"`
}

// ProvinceStatus is the compliance of the assets registered in one province.
type ProvinceStatus struct {
	Province     string        `json:"province"`
	Status       Status        `json:"status"`
	Requirements []Requirement `json:"requirements"`
}
