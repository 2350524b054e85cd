package model

import (
	"time"
)

// ZoneReading is the canonical per-zone document produced from one
// live-info poll.
type ZoneReading struct {
	Type       string `json:"type"` // "zone_reading"
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	ZoneName   string `json:"zone_name"`
	Kind       string `json:"kind"` // THERMOSTAT or SOCKET, derived per fetch

	CollectedAt time.Time `json:"collected_at"`
	Mode        string    `json:"mode"` // heat/cool/vent/auto/off

	// Temperatures are present only when the raw reading was judged
	// valid for the zone kind; sockets never carry them.
	ActualTempC *float64 `json:"actual_temp_c,omitempty"`
	SetTempC    *float64 `json:"set_temp_c,omitempty"`

	HumidityPct   *int `json:"humidity_pct,omitempty"`
	ModulationPct *int `json:"modulation_pct,omitempty"`
	ActiveProfile int  `json:"active_profile"`

	HeatingOn    bool `json:"heating_on"`
	WindowOpen   bool `json:"window_open"`
	LowBattery   bool `json:"low_battery"`
	TimerOn      bool `json:"timer_on"`
	HoldOn       bool `json:"hold_on"`
	ValidReading bool `json:"valid_reading"`

	Provider map[string]any `json:"provider,omitempty"` // provider-specific data
}

// DeviceSnapshot summarizes one hub device at poll time.
type DeviceSnapshot struct {
	Type        string    `json:"type"` // "device_snapshot"
	CollectedAt time.Time `json:"collected_at"`
	DeviceID    string    `json:"device_id"`
	DeviceName  string    `json:"device_name"`
	DeviceType  string    `json:"device_type,omitempty"`
	Version     int       `json:"version,omitempty"`
	Online      bool      `json:"online"`
	Away        bool      `json:"away"`
	Holiday     bool      `json:"holiday"`
	ZoneCount   int       `json:"zone_count"`
	ActiveZones int       `json:"active_zones"`
	SocketZones int       `json:"socket_zones"`

	Provider map[string]any `json:"provider,omitempty"`
}

// ZoneHistory wraps one imported history payload for a zone.
type ZoneHistory struct {
	Type       string    `json:"type"` // "zone_history"
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	ZoneName   string    `json:"zone_name"`
	ImportedAt time.Time `json:"imported_at"`
	Payload    any       `json:"payload,omitempty"`
}

// ZoneProblem records one anomaly surfaced during a poll.
type ZoneProblem struct {
	Type        string    `json:"type"` // "zone_problem"
	CollectedAt time.Time `json:"collected_at"`
	DeviceName  string    `json:"device_name"`
	ZoneName    string    `json:"zone_name"`
	Issue       string    `json:"issue"`
}

// DocumentIDGenerator generates deterministic document IDs so that
// re-polls of identical data overwrite rather than duplicate.
type DocumentIDGenerator interface {
	// GenerateZoneReadingID generates ID for zone_reading documents
	GenerateZoneReadingID(doc *ZoneReading) (string, error)

	// GenerateDeviceSnapshotID generates ID for device_snapshot documents
	GenerateDeviceSnapshotID(doc *DeviceSnapshot) (string, error)

	// GenerateZoneHistoryID generates ID for zone_history documents
	GenerateZoneHistoryID(doc *ZoneHistory) (string, error)

	// GenerateZoneProblemID generates ID for zone_problem documents
	GenerateZoneProblemID(doc *ZoneProblem) (string, error)
}
