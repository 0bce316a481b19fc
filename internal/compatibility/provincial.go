package compatibility

// Province codes with towing rules.
const (
	ProvinceOntario = "ON"
	ProvinceQuebec  = "QC"
	ProvinceAlberta = "AB"
)

// Provincial towing thresholds in kilograms.
const (
	OntarioCommercialPlatesOverKg = 4600
	QuebecSafetyChainsOverKg      = 900
	AlbertaBreakawayBrakesOverKg  = 2000
)

// CheckProvincialRequirements lists the towing rules of a province that apply
// to the trailer. Unknown provinces have no additional requirements.
func CheckProvincialRequirements(_ Vehicle, trailer Trailer, province string) []string {
	requirements := []string{}

	switch province {
	case ProvinceOntario:
		if trailer.RequiredTowingCapacityKg > OntarioCommercialPlatesOverKg {
			requirements = append(requirements, "Ontario: Trailer over 4,600kg requires commercial plates")
		}
		if trailer.HasElectricBrakes {
			requirements = append(requirements, "Ontario: Electric brakes required for trailers over 1,360kg")
		}
	case ProvinceQuebec:
		if trailer.RequiredTowingCapacityKg > QuebecSafetyChainsOverKg {
			requirements = append(requirements, "Quebec: Safety chains required for trailers over 900kg")
		}
	case ProvinceAlberta:
		if trailer.RequiredTowingCapacityKg > AlbertaBreakawayBrakesOverKg {
			requirements = append(requirements, "Alberta: Breakaway brakes required for trailers over 2,000kg")
		}
	}

	return requirements
}
