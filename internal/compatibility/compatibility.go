package compatibility

import (
	"fmt"
)

// Check evaluates whether vehicle can tow trailer.
//
// Checks run in a fixed order (capacity, hitch class, brake controller,
// utilization) and every finding is kept, so repeated calls with the same
// records produce identical results. A mismatch is reported as a FAIL result,
// not an error; an error is only returned when the vehicle has no usable
// towing capacity.
func Check(vehicle Vehicle, trailer Trailer) (Result, error) {
	if vehicle.TowingCapacityKg <= 0 {
		return Result{}, fmt.Errorf("%w: vehicle %q has towing capacity %dkg", ErrInvalidInput, vehicle.ID, vehicle.TowingCapacityKg)
	}

	issues := []string{}
	warnings := []string{}
	recommendations := []string{}

	marginKg := vehicle.TowingCapacityKg - trailer.RequiredTowingCapacityKg
	utilizationPercent := float64(trailer.RequiredTowingCapacityKg) / float64(vehicle.TowingCapacityKg) * 100

	switch {
	case marginKg < 0:
		issues = append(issues, fmt.Sprintf(
			"Insufficient towing capacity: vehicle has %dkg, trailer requires %dkg",
			vehicle.TowingCapacityKg, trailer.RequiredTowingCapacityKg,
		))
		recommendations = append(recommendations, fmt.Sprintf(
			"Upgrade to a vehicle with at least %dkg towing capacity",
			trailer.RequiredTowingCapacityKg+SafetyMarginKg,
		))
	case marginKg < SafetyMarginKg:
		warnings = append(warnings, fmt.Sprintf(
			"Low capacity margin (%dkg) - consider using a vehicle with more towing capacity for safety",
			marginKg,
		))
		recommendations = append(recommendations, "Consider a vehicle with 20% more towing capacity for safer operation")
	}

	if vehicle.HitchClass < trailer.RequiredHitchClass {
		issues = append(issues, fmt.Sprintf(
			"Incompatible hitch class: vehicle has Class %d, trailer requires Class %d",
			vehicle.HitchClass, trailer.RequiredHitchClass,
		))
		recommendations = append(recommendations, fmt.Sprintf(
			"Vehicle needs a Class %d or higher hitch", trailer.RequiredHitchClass,
		))
	}

	if trailer.RequiresElectricBrakeController && !vehicle.HasElectricBrakeController {
		issues = append(issues, "Trailer requires electric brake controller which vehicle does not have")
		recommendations = append(recommendations, "Install electric brake controller or select different vehicle")
	}

	if utilizationPercent > MaxUtilizationPercent {
		warnings = append(warnings, "Operating at >95% of towing capacity - not recommended for regular use")
	}

	status := StatusPass
	switch {
	case len(issues) > 0:
		status = StatusFail
	case len(warnings) > 0:
		status = StatusWarning
	}

	return Result{
		VehicleID:                  vehicle.ID,
		TrailerID:                  trailer.ID,
		Status:                     status,
		CanTow:                     len(issues) == 0,
		CapacityMarginKg:           marginKg,
		CapacityUtilizationPercent: utilizationPercent,
		Issues:                     issues,
		Warnings:                   warnings,
		Recommendations:            recommendations,
	}, nil
}

// Recommendations returns the result's recommendations followed by
// supplementary suggestions. The result itself is not modified.
func Recommendations(result Result) []string {
	out := make([]string, 0, len(result.Recommendations)+3)
	out = append(out, result.Recommendations...)

	if result.Status == StatusFail && result.CapacityMarginKg < 0 {
		out = append(out,
			fmt.Sprintf("Upgrade to a vehicle with at least %dkg more towing capacity", -result.CapacityMarginKg+SafetyMarginKg),
			"Consider lighter trailer alternatives",
		)
	}

	if result.CapacityUtilizationPercent > 0 && result.CapacityUtilizationPercent < IdealUtilizationMin*100 {
		out = append(out, "Vehicle is over-specified for this trailer - consider using for heavier loads")
	}

	return out
}

// Display returns the icon, color and headline used to present a result.
func Display(result Result) DisplayInfo {
	switch result.Status {
	case StatusPass:
		return DisplayInfo{
			Icon:     "✓",
			Color:    "green",
			Title:    "Compatible",
			Subtitle: fmt.Sprintf("%dkg margin available", result.CapacityMarginKg),
		}
	case StatusWarning:
		subtitle := "Check warnings before proceeding"
		if len(result.Warnings) > 0 {
			subtitle = result.Warnings[0]
		}
		return DisplayInfo{Icon: "⚠", Color: "amber", Title: "Compatible with Warnings", Subtitle: subtitle}
	case StatusFail:
		subtitle := "Cannot safely tow this trailer"
		if len(result.Issues) > 0 {
			subtitle = result.Issues[0]
		}
		return DisplayInfo{Icon: "✗", Color: "red", Title: "Not Compatible", Subtitle: subtitle}
	default:
		return DisplayInfo{Icon: "?", Color: "gray", Title: "Unknown", Subtitle: string(result.Status)}
	}
}
