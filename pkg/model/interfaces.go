package model

import (
	"context"
	"time"
)

// ProviderInfo contains metadata about a provider implementation
type ProviderInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// SinkInfo contains metadata about a sink implementation
type SinkInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// DeviceRef identifies one physical hub unit across providers
type DeviceRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Provider   string `json:"provider"`
	Type       string `json:"type,omitempty"`
	Version    int    `json:"version,omitempty"`
	Online     bool   `json:"online"`
	Away       bool   `json:"away"`
	Holiday    bool   `json:"holiday"`
	TempFormat string `json:"temp_format,omitempty"` // "C" or "F"
	Timezone   string `json:"timezone,omitempty"`
}

// AuthManager handles authentication for providers
type AuthManager interface {
	// RefreshToken establishes (or re-establishes) a session.
	// For token-per-login providers this is a full re-login.
	RefreshToken(ctx context.Context) error

	// IsTokenValid checks if a usable session token is held
	IsTokenValid(ctx context.Context) bool
}

// ZoneRow is one zone's raw-ish state as fetched from a provider,
// before canonical normalization. Temperature fields stay text because
// some providers report sentinels or junk there.
type ZoneRow struct {
	Device      DeviceRef `json:"device"`
	ZoneName    string    `json:"zone_name"`
	Kind        string    `json:"kind"` // derived classification, recomputed each fetch
	CollectedAt time.Time `json:"collected_at"`

	Mode           string `json:"mode"`
	ActualTempText string `json:"actual_temp_text"`
	SetTempText    string `json:"set_temp_text"`
	HumidityPct    int    `json:"humidity_pct"`
	ModulationPct  int    `json:"modulation_pct"`
	ActiveProfile  int    `json:"active_profile"`

	HeatingOn    bool `json:"heating_on"`
	WindowOpen   bool `json:"window_open"`
	LowBattery   bool `json:"low_battery"`
	TimerOn      bool `json:"timer_on"`
	HoldOn       bool `json:"hold_on"`
	ValidReading bool `json:"valid_reading"`
}

// HistoryRow is one zone's history payload as fetched from a provider
type HistoryRow struct {
	Device    DeviceRef `json:"device"`
	ZoneName  string    `json:"zone_name"`
	FetchedAt time.Time `json:"fetched_at"`
	Payload   any       `json:"payload,omitempty"`
}

// Problem flags one zone or device needing attention
type Problem struct {
	Device string `json:"device"`
	Zone   string `json:"zone"`
	Issue  string `json:"issue"`
}

// Provider defines the interface for hub data providers
type Provider interface {
	// Info returns metadata about the provider
	Info() ProviderInfo

	// ListDevices returns all hub devices available to this provider
	ListDevices(ctx context.Context) ([]DeviceRef, error)

	// GetZoneRows returns the current live-info rows for one device
	GetZoneRows(ctx context.Context, device DeviceRef) ([]ZoneRow, error)

	// GetHistory returns the history payload for one zone
	GetHistory(ctx context.Context, device DeviceRef, zoneName string) (HistoryRow, error)

	// Auth returns the authentication manager for this provider
	Auth() AuthManager
}

// Doc represents a document to be written to a sink
type Doc struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Body any    `json:"body"`
}

// WriteResult contains information about a write operation
type WriteResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

// Sink defines the interface for data storage sinks
type Sink interface {
	// Info returns metadata about the sink
	Info() SinkInfo

	// Open initializes the sink connection
	Open(ctx context.Context) error

	// Write writes documents to the sink
	Write(ctx context.Context, docs []Doc) (WriteResult, error)

	// Close closes the sink connection
	Close(ctx context.Context) error
}
