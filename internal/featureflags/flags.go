// Package featureflags holds the runtime switches that pause or degrade
// parts of the fleet engines without a redeploy.
package featureflags

import (
	"errors"
	"fmt"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisableCompatibilityHistory stops saving compatibility checks.
	FlagDisableCompatibilityHistory = "disable_compatibility_history"

	// FlagDisableProvincialRules omits provincial towing rules from checks.
	FlagDisableProvincialRules = "disable_provincial_rules"

	// FlagTimelineLegacyHorizon limits the renewal timeline to the 90-day
	// alert horizon instead of the full twelve months.
	FlagTimelineLegacyHorizon = "compliance_timeline_legacy_horizon"

	// FlagDisableComplianceSweep pauses the scheduled compliance sweep.
	FlagDisableComplianceSweep = "disable_compliance_sweep"
)

var (
	// ErrFlagNotFound is returned when no override is stored for a key.
	ErrFlagNotFound = errors.New("feature flag not found")

	// ErrUnknownFlag is returned when an update names a key that is not defined.
	ErrUnknownFlag = errors.New("unknown feature flag")

	// ErrInvalidValue is returned when an update carries a non-boolean value.
	ErrInvalidValue = errors.New("feature flag value must be a boolean")
)

// Definition describes a known switch. Every switch defaults to off.
type Definition struct {
	Key         string
	Description string
}

// definitions is ordered by key.
var definitions = []Definition{
	{FlagTimelineLegacyHorizon, "Bucket only renewals inside the 90-day alert horizon"},
	{FlagDisableCompatibilityHistory, "Stop recording compatibility checks"},
	{FlagDisableComplianceSweep, "Pause the scheduled compliance sweep"},
	{FlagDisableProvincialRules, "Skip provincial towing rules during compatibility checks"},
}

// Definitions returns every known switch ordered by key.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for key.
func Lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Flag is the current value of a switch.
type Flag struct {
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Description string      `json:"description,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key" validate:"required,max=100"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates" validate:"required,min=1,dive"`
	Reason  string       `json:"reason" validate:"required,max=500"`
}

// BoolValue returns the flag value as a boolean, or defaultValue when the
// flag is nil or holds something else.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

func (f *Flag) clone() *Flag {
	cpy := *f
	return &cpy
}

func (u FlagUpdate) check() error {
	if _, ok := Lookup(u.Key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFlag, u.Key)
	}
	if _, ok := u.Value.(bool); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidValue, u.Key)
	}
	return nil
}

func defaultsAt(now time.Time) map[string]*Flag {
	flags := make(map[string]*Flag, len(definitions))
	for _, d := range definitions {
		flags[d.Key] = &Flag{Key: d.Key, Value: false, Description: d.Description, UpdatedAt: now}
	}
	return flags
}
