package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"

	"github.com/fleetops/fleetops/internal/compatibility"
	"github.com/fleetops/fleetops/internal/compliance"
	"github.com/fleetops/fleetops/internal/featureflags"
	"github.com/fleetops/fleetops/internal/telemetry"
)

// DefaultProvince is used when a compatibility check names no province.
const DefaultProvince = compatibility.ProvinceOntario

// FlagChecker reports whether a runtime flag is on.
type FlagChecker interface {
	IsEnabled(ctx context.Context, key string) bool
}

// ServiceConfig holds configuration for the fleet service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// Clock drives every date-sensitive calculation (default: real clock).
	Clock clockz.Clock

	// Flags toggles optional behavior. Nil means every flag is off.
	Flags FlagChecker

	// Metrics is optional.
	Metrics *telemetry.EngineMetrics

	// DefaultProvince applies to checks without a province (default: ON).
	DefaultProvince string
}

// Service feeds fleet records to the compatibility and compliance engines.
type Service struct {
	repo            Repository
	logger          zerolog.Logger
	clock           clockz.Clock
	flags           FlagChecker
	metrics         *telemetry.EngineMetrics
	engine          *compliance.Engine
	defaultProvince string
}

// NewService creates a new fleet service.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockz.RealClock
	}

	province := cfg.DefaultProvince
	if province == "" {
		province = DefaultProvince
	}

	return &Service{
		repo:            cfg.Repository,
		logger:          cfg.Logger,
		clock:           clock,
		flags:           cfg.Flags,
		metrics:         cfg.Metrics,
		engine:          compliance.NewEngine(clock),
		defaultProvince: province,
	}
}

// Engine returns the compliance engine bound to the service clock.
func (s *Service) Engine() *compliance.Engine {
	return s.engine
}

func (s *Service) flagOn(ctx context.Context, key string) bool {
	return s.flags != nil && s.flags.IsEnabled(ctx, key)
}

// CompatibilityReport is a compatibility evaluation with presentation and
// provincial detail.
type CompatibilityReport struct {
	CheckID                string                    `json:"checkId,omitempty"`
	Province               string                    `json:"province"`
	Vehicle                compatibility.Vehicle     `json:"vehicle"`
	VehicleName            string                    `json:"vehicleName"`
	Trailer                compatibility.Trailer     `json:"trailer"`
	Compatibility          compatibility.Result      `json:"compatibility"`
	Recommendations        []string                  `json:"recommendations"`
	ProvincialRequirements []string                  `json:"provincialRequirements"`
	Display                compatibility.DisplayInfo `json:"display"`
	CheckedAt              time.Time                 `json:"checkedAt"`
}

// CheckCompatibility evaluates a stored vehicle against a stored trailer and
// records the outcome in the check history.
func (s *Service) CheckCompatibility(ctx context.Context, vehicleID, trailerID, province string) (*CompatibilityReport, error) {
	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	trailer, err := s.repo.GetTrailer(ctx, trailerID)
	if err != nil {
		return nil, err
	}

	report, err := s.Evaluate(ctx, vehicle.CompatibilityRecord(), trailer.CompatibilityRecord(), province)
	if err != nil {
		return nil, err
	}

	if s.flagOn(ctx, featureflags.FlagDisableCompatibilityHistory) {
		return report, nil
	}

	check := &CompatibilityCheck{
		ID:                         uuid.New().String(),
		VehicleID:                  vehicle.ID,
		TrailerID:                  trailer.ID,
		Province:                   report.Province,
		Status:                     report.Compatibility.Status,
		CanTow:                     report.Compatibility.CanTow,
		CapacityMarginKg:           report.Compatibility.CapacityMarginKg,
		CapacityUtilizationPercent: report.Compatibility.CapacityUtilizationPercent,
		Issues:                     report.Compatibility.Issues,
		Warnings:                   report.Compatibility.Warnings,
		Recommendations:            report.Compatibility.Recommendations,
		ProvincialRequirements:     report.ProvincialRequirements,
		CheckedAt:                  report.CheckedAt,
	}
	if err := s.repo.SaveCompatibilityCheck(ctx, check); err != nil {
		// History is best effort; the evaluation itself succeeded.
		s.logger.Warn().Err(err).
			Str("vehicle_id", vehicle.ID).
			Str("trailer_id", trailer.ID).
			Msg("failed to save compatibility check")
		return report, nil
	}

	report.CheckID = check.ID
	return report, nil
}

// Evaluate runs the compatibility rules on records that need not be stored.
// Nothing is saved.
func (s *Service) Evaluate(ctx context.Context, vehicle compatibility.Vehicle, trailer compatibility.Trailer, province string) (*CompatibilityReport, error) {
	if province == "" {
		province = s.defaultProvince
	}

	result, err := compatibility.Check(vehicle, trailer)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCompatibilityCheck(ctx, string(result.Status))

	provincial := []string{}
	if !s.flagOn(ctx, featureflags.FlagDisableProvincialRules) {
		provincial = compatibility.CheckProvincialRequirements(vehicle, trailer, province)
	}

	return &CompatibilityReport{
		Province:               province,
		Vehicle:                vehicle,
		VehicleName:            vehicle.DisplayName(),
		Trailer:                trailer,
		Compatibility:          result,
		Recommendations:        compatibility.Recommendations(result),
		ProvincialRequirements: provincial,
		Display:                compatibility.Display(result),
		CheckedAt:              s.clock.Now().UTC(),
	}, nil
}

// MatchReport ranks the active fleet against one trailer.
type MatchReport struct {
	Trailer                 compatibility.Trailer        `json:"trailer"`
	Matches                 []compatibility.VehicleMatch `json:"matches"`
	TotalCompatibleVehicles int                          `json:"totalCompatibleVehicles"`
}

// BestMatches ranks active vehicles that can tow the trailer. maxResults <= 0
// uses compatibility.DefaultMaxResults.
func (s *Service) BestMatches(ctx context.Context, trailerID string, maxResults int) (*MatchReport, error) {
	trailer, err := s.repo.GetTrailer(ctx, trailerID)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.repo.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	candidates := make([]compatibility.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.Status == AssetActive {
			candidates = append(candidates, v.CompatibilityRecord())
		}
	}

	matches := compatibility.FindBestMatches(candidates, trailer.CompatibilityRecord(), maxResults)
	for _, m := range matches {
		s.metrics.RecordCompatibilityCheck(ctx, string(m.Compatibility.Status))
	}

	return &MatchReport{
		Trailer:                 trailer.CompatibilityRecord(),
		Matches:                 matches,
		TotalCompatibleVehicles: len(matches),
	}, nil
}

// CompatibilityHistory lists saved checks, newest first.
func (s *Service) CompatibilityHistory(ctx context.Context, filter CheckFilter) ([]*CompatibilityCheck, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	return s.repo.ListCompatibilityChecks(ctx, filter)
}

// ComplianceRecords is the fleet as seen by the compliance engine.
type ComplianceRecords struct {
	Vehicles      []compliance.Vehicle // not retired
	Trailers      []compliance.Trailer // not retired
	Drivers       []compliance.Driver
	ActiveDrivers []compliance.Driver
	Documents     []compliance.Document
}

// Snapshot loads every stored record.
func (s *Service) Snapshot(ctx context.Context) (Records, error) {
	vehicles, err := s.repo.ListVehicles(ctx)
	if err != nil {
		return Records{}, fmt.Errorf("list vehicles: %w", err)
	}
	trailers, err := s.repo.ListTrailers(ctx)
	if err != nil {
		return Records{}, fmt.Errorf("list trailers: %w", err)
	}
	drivers, err := s.repo.ListDrivers(ctx)
	if err != nil {
		return Records{}, fmt.Errorf("list drivers: %w", err)
	}
	documents, err := s.repo.ListDocuments(ctx, DocumentFilter{})
	if err != nil {
		return Records{}, fmt.Errorf("list documents: %w", err)
	}
	return Records{Vehicles: vehicles, Trailers: trailers, Drivers: drivers, Documents: documents}, nil
}

func (s *Service) loadSnapshot(ctx context.Context) (ComplianceRecords, error) {
	records, err := s.Snapshot(ctx)
	if err != nil {
		return ComplianceRecords{}, err
	}
	return ComplianceView(records), nil
}

// ComplianceView converts stored records to compliance records. Retired
// vehicles and trailers are left out of the asset lists, but documents
// still embed their owner so alerts name it.
func ComplianceView(records Records) ComplianceRecords {
	var snap ComplianceRecords

	vehicles := make(map[string]*compliance.Vehicle, len(records.Vehicles))
	for _, v := range records.Vehicles {
		cv := v.ComplianceRecord()
		vehicles[v.ID] = &cv
		if !v.Retired() {
			snap.Vehicles = append(snap.Vehicles, cv)
		}
	}

	trailers := make(map[string]*compliance.Trailer, len(records.Trailers))
	for _, t := range records.Trailers {
		ct := t.ComplianceRecord()
		trailers[t.ID] = &ct
		if !t.Retired() {
			snap.Trailers = append(snap.Trailers, ct)
		}
	}

	for _, d := range records.Drivers {
		cd := d.ComplianceRecord()
		snap.Drivers = append(snap.Drivers, cd)
		if cd.Status == compliance.DriverActive {
			snap.ActiveDrivers = append(snap.ActiveDrivers, cd)
		}
	}

	for _, d := range records.Documents {
		snap.Documents = append(snap.Documents, complianceDocument(d, vehicles, trailers))
	}

	return snap
}

func complianceDocument(d *Document, vehicles map[string]*compliance.Vehicle, trailers map[string]*compliance.Trailer) compliance.Document {
	doc := compliance.Document{
		ID:             d.ID,
		Type:           d.Type,
		DocumentNumber: d.DocumentNumber,
		ExpiryDate:     d.ExpiryDate,
		VehicleID:      d.VehicleID,
		TrailerID:      d.TrailerID,
	}
	if v, ok := vehicles[d.VehicleID]; ok && d.VehicleID != "" {
		doc.Vehicle = v
	}
	if t, ok := trailers[d.TrailerID]; ok && d.TrailerID != "" {
		doc.Trailer = t
	}
	return doc
}

// FleetBreakdown is the per-province and per-asset-type detail of a fleet
// status.
type FleetBreakdown struct {
	ProvinceBreakdown  []compliance.ProvinceStatus    `json:"provinceBreakdown"`
	AssetTypeBreakdown compliance.AssetTypeBreakdown `json:"assetTypeBreakdown"`
}

// FleetStatusReport is the fleet compliance status, optionally detailed.
type FleetStatusReport struct {
	compliance.Status
	Detailed *FleetBreakdown `json:"detailed,omitempty"`
}

// FleetStatus computes the compliance status of every non-retired asset.
func (s *Service) FleetStatus(ctx context.Context, detailed bool) (*FleetStatusReport, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.FleetStatusOf(snap, detailed), nil
}

// FleetStatusOf computes the fleet status of an already loaded snapshot.
func (s *Service) FleetStatusOf(snap ComplianceRecords, detailed bool) *FleetStatusReport {
	status, breakdown := s.engine.CalculateStatusWithBreakdown(snap.Vehicles, snap.Trailers, snap.Drivers, snap.Documents)

	report := &FleetStatusReport{Status: status}
	if detailed {
		report.Detailed = &FleetBreakdown{
			ProvinceBreakdown:  s.engine.ProvinceBreakdown(snap.Vehicles, snap.Trailers, snap.Drivers, snap.Documents),
			AssetTypeBreakdown: breakdown,
		}
	}
	return report
}

// AssetDetail is the document and provincial detail of one asset.
type AssetDetail struct {
	Province             string                             `json:"province"`
	Documents            []compliance.Document              `json:"documents"`
	ProvincialValidation []compliance.RequirementValidation `json:"provincialValidation"`
}

// AssetStatusReport is the compliance status of a single asset.
type AssetStatusReport struct {
	AssetID    string               `json:"assetId"`
	AssetType  compliance.AssetType `json:"assetType"`
	AssetName  string               `json:"assetName"`
	Compliance compliance.Status    `json:"compliance"`
	Detailed   *AssetDetail         `json:"detailed,omitempty"`
}

// AssetStatus computes the compliance status of one vehicle, trailer or
// driver.
func (s *Service) AssetStatus(ctx context.Context, assetID string, assetType compliance.AssetType, detailed bool) (*AssetStatusReport, error) {
	var (
		report   = &AssetStatusReport{AssetID: assetID, AssetType: assetType}
		province string
		docs     []compliance.Document
	)

	switch assetType {
	case compliance.AssetVehicle:
		v, err := s.repo.GetVehicle(ctx, assetID)
		if err != nil {
			return nil, err
		}
		cv := v.ComplianceRecord()
		stored, err := s.repo.ListDocuments(ctx, DocumentFilter{VehicleID: v.ID})
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = embedOwner(stored, &cv, nil)
		report.AssetName = cv.DisplayName()
		report.Compliance = s.engine.CalculateStatus([]compliance.Vehicle{cv}, nil, nil, docs)
		province = cv.Province

	case compliance.AssetTrailer:
		t, err := s.repo.GetTrailer(ctx, assetID)
		if err != nil {
			return nil, err
		}
		ct := t.ComplianceRecord()
		stored, err := s.repo.ListDocuments(ctx, DocumentFilter{TrailerID: t.ID})
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = embedOwner(stored, nil, &ct)
		report.AssetName = ct.DisplayName()
		report.Compliance = s.engine.CalculateStatus(nil, []compliance.Trailer{ct}, nil, docs)
		province = ct.Province

	case compliance.AssetDriver:
		d, err := s.repo.GetDriver(ctx, assetID)
		if err != nil {
			return nil, err
		}
		cd := d.ComplianceRecord()
		report.AssetName = cd.FullName()
		report.Compliance = s.engine.CalculateStatus(nil, nil, []compliance.Driver{cd}, nil)
		province = cd.Province

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAssetType, assetType)
	}

	if detailed {
		if docs == nil {
			docs = []compliance.Document{}
		}
		validation := []compliance.RequirementValidation{}
		if assetType != compliance.AssetDriver && province != "" {
			validation = s.engine.ValidateProvincialRequirements(province, assetType, docs)
		}
		report.Detailed = &AssetDetail{
			Province:             province,
			Documents:            docs,
			ProvincialValidation: validation,
		}
	}

	return report, nil
}

func embedOwner(stored []*Document, vehicle *compliance.Vehicle, trailer *compliance.Trailer) []compliance.Document {
	docs := make([]compliance.Document, 0, len(stored))
	for _, d := range stored {
		var (
			vehicles map[string]*compliance.Vehicle
			trailers map[string]*compliance.Trailer
		)
		if vehicle != nil {
			vehicles = map[string]*compliance.Vehicle{vehicle.ID: vehicle}
		}
		if trailer != nil {
			trailers = map[string]*compliance.Trailer{trailer.ID: trailer}
		}
		docs = append(docs, complianceDocument(d, vehicles, trailers))
	}
	return docs
}

// UpcomingRenewals returns alerts due within days, grouped by priority.
// days <= 0 uses compliance.RenewalHorizonDays; larger values widen the
// horizon.
func (s *Service) UpcomingRenewals(ctx context.Context, days int) (compliance.PriorityGroups, error) {
	if days <= 0 {
		days = compliance.RenewalHorizonDays
	}
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return compliance.PriorityGroups{}, err
	}

	horizon := max(days, compliance.RenewalHorizonDays)
	alerts := s.engine.DocumentRenewalsWithin(snap.Documents, horizon)
	alerts = append(alerts, s.engine.DriverLicenseRenewalsWithin(snap.ActiveDrivers, horizon)...)

	return compliance.GroupByPriority(compliance.Upcoming(alerts, days)), nil
}

// CriticalRenewals returns alerts that are expired, due within a week, or red.
func (s *Service) CriticalRenewals(ctx context.Context) ([]compliance.RenewalAlert, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return compliance.Critical(s.engine.Renewals(snap.Documents, snap.ActiveDrivers)), nil
}

// RenewalTimeline buckets upcoming renewals by calendar month.
func (s *Service) RenewalTimeline(ctx context.Context) ([]compliance.TimelineMonth, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.TimelineOf(ctx, snap), nil
}

// TimelineOf buckets the renewals of an already loaded snapshot.
func (s *Service) TimelineOf(ctx context.Context, snap ComplianceRecords) []compliance.TimelineMonth {
	if s.flagOn(ctx, featureflags.FlagTimelineLegacyHorizon) {
		return s.engine.TimelineWithHorizon(snap.Documents, snap.ActiveDrivers, compliance.RenewalHorizonDays)
	}
	return s.engine.Timeline(snap.Documents, snap.ActiveDrivers)
}

// Ready reports whether the record source is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("fleet repository: %w", err)
	}
	return nil
}

// IsInputError reports whether err was caused by invalid caller input.
func IsInputError(err error) bool {
	return errors.Is(err, compatibility.ErrInvalidInput) || errors.Is(err, ErrUnknownAssetType)
}
