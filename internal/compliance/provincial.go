package compliance

import (
	"sort"
)

var defaultWarningPeriods = []int{90, 60, 30, 14, 7, 3, 1}

func requirement(code, province, name string, docType DocumentType, months int) Requirement {
	return Requirement{
		ProvinceCode:        code,
		Province:            province,
		Requirement:         name,
		DocumentType:        docType,
		RenewalPeriodMonths: months,
		WarningPeriodDays:   defaultWarningPeriods,
		Mandatory:           true,
	}
}

var provincialRequirements = map[string][]Requirement{
	"ON": {
		requirement("ON", "Ontario", "Vehicle Registration", DocumentRegistration, 12),
		requirement("ON", "Ontario", "Commercial Vehicle Insurance", DocumentInsurance, 12),
		requirement("ON", "Ontario", "Commercial Vehicle Safety Inspection", DocumentInspection, 12),
		requirement("ON", "Ontario", "Commercial Vehicle Permit", DocumentCommercialPermit, 12),
	},
	"AB": {
		requirement("AB", "Alberta", "Vehicle Registration", DocumentRegistration, 12),
		requirement("AB", "Alberta", "Commercial Vehicle Insurance", DocumentInsurance, 12),
		requirement("AB", "Alberta", "Commercial Vehicle Safety Inspection", DocumentInspection, 6),
	},
	"BC": {
		requirement("BC", "British Columbia", "Vehicle Registration", DocumentRegistration, 12),
		requirement("BC", "British Columbia", "Commercial Vehicle Insurance", DocumentInsurance, 12),
		requirement("BC", "British Columbia", "Commercial Vehicle Safety Inspection", DocumentInspection, 12),
	},
}

// Requirements returns a copy of the requirement table of a province. Unknown
// provinces have no requirements.
func Requirements(province string) []Requirement {
	rows := provincialRequirements[province]
	out := make([]Requirement, len(rows))
	for i, r := range rows {
		r.WarningPeriodDays = append([]int(nil), r.WarningPeriodDays...)
		out[i] = r
	}
	return out
}

// Provinces returns the province codes with requirement tables, sorted.
func Provinces() []string {
	codes := make([]string, 0, len(provincialRequirements))
	for code := range provincialRequirements {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ValidateProvincialRequirements checks each requirement of the province
// against the documents, in table order. A requirement is met by the first
// document of the matching type that has not expired. Drivers and unknown
// provinces have no requirements.
func (e *Engine) ValidateProvincialRequirements(province string, assetType AssetType, documents []Document) []RequirementValidation {
	if assetType == AssetDriver {
		return []RequirementValidation{}
	}

	now := e.clock.Now()
	requirements := Requirements(province)
	out := make([]RequirementValidation, 0, len(requirements))

	for _, req := range requirements {
		v := RequirementValidation{Requirement: req}
		for i := range documents {
			doc := documents[i]
			if doc.Type == req.DocumentType && DaysBetween(doc.ExpiryDate, now) > 0 {
				v.HasValidDocument = true
				v.Document = &doc
				break
			}
		}
		out = append(out, v)
	}

	return out
}
