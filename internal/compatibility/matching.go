package compatibility

import (
	"math"
	"sort"
)

// Score components, in tenths of a point. Integer arithmetic keeps equal
// scores exactly equal so the utilization tie-break is reachable.
const (
	scoreIdealUtilization = 5
	scoreHighUtilization  = 4
	scoreLowUtilization   = 3
	scorePass             = 3
	scoreWarning          = 1
	scoreExactHitch       = 2
	scoreHigherHitch      = 1
)

type rankedMatch struct {
	match  VehicleMatch
	points int
	dist   float64
}

// FindBestMatches ranks the vehicles able to tow trailer, best first.
//
// Vehicles that fail the check, or that cannot be evaluated at all, are left
// out. Matches are ordered by score, then by how close their utilization is
// to the 70% ideal. At most maxResults matches are returned; a non-positive
// maxResults means DefaultMaxResults.
func FindBestMatches(vehicles []Vehicle, trailer Trailer, maxResults int) []VehicleMatch {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	ranked := make([]rankedMatch, 0, len(vehicles))
	for _, vehicle := range vehicles {
		result, err := Check(vehicle, trailer)
		if err != nil || !result.CanTow {
			continue
		}

		utilization := float64(trailer.RequiredTowingCapacityKg) / float64(vehicle.TowingCapacityKg)
		points := utilizationPoints(utilization) + statusPoints(result.Status) + hitchPoints(vehicle.HitchClass, trailer.RequiredHitchClass)

		ranked = append(ranked, rankedMatch{
			match: VehicleMatch{
				Vehicle:             vehicle,
				Compatibility:       result,
				MatchScore:          float64(points) / 10,
				CapacityUtilization: utilization,
			},
			points: points,
			dist:   math.Abs(utilization - IdealUtilizationTarget),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].points != ranked[j].points {
			return ranked[i].points > ranked[j].points
		}
		return ranked[i].dist < ranked[j].dist
	})

	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	matches := make([]VehicleMatch, len(ranked))
	for i, r := range ranked {
		matches[i] = r.match
	}
	return matches
}

func utilizationPoints(utilization float64) int {
	switch {
	case utilization >= IdealUtilizationMin && utilization <= IdealUtilizationMax:
		return scoreIdealUtilization
	case utilization < IdealUtilizationMin:
		return scoreLowUtilization
	default:
		return scoreHighUtilization
	}
}

func statusPoints(status Status) int {
	switch status {
	case StatusPass:
		return scorePass
	case StatusWarning:
		return scoreWarning
	default:
		return 0
	}
}

func hitchPoints(vehicleClass, requiredClass int) int {
	switch {
	case vehicleClass == requiredClass:
		return scoreExactHitch
	case vehicleClass > requiredClass:
		return scoreHigherHitch
	default:
		return 0
	}
}
