package models

// Health is the liveness and readiness body.
type Health struct {
	Status    HealthStatus `json:"status"`
	Time      Timestamp    `json:"time"`
	Version   string       `json:"version,omitempty"`
	BuildTime string       `json:"buildTime,omitempty"`
}

// SystemStatus rolls up the fleet store, every guarded dependency and
// the runtime switches currently degrading behaviour.
type SystemStatus struct {
	Status                 HealthStatus       `json:"status"`
	Time                   Timestamp          `json:"time"`
	Subsystems             []SubsystemStatus  `json:"subsystems"`
	Dependencies           []DependencyStatus `json:"dependencies"`
	ActiveDegradationFlags []string           `json:"activeDegradationFlags,omitempty"`
}

type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// DependencyStatus reports a guarded dependency and its circuit state.
type DependencyStatus struct {
	Name          string       `json:"name"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError     string       `json:"lastError,omitempty"`
}
