package neohub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
	"github.com/benvon/neohub-telemetry-reader/pkg/neohub"
)

const providerName = "neohub"

// Provider implements the Heatmiser neoHub cloud provider
type Provider struct {
	client      *neohub.Client
	authManager *AuthManager
	validator   neohub.Validator
	logger      *slog.Logger
}

// NewProvider creates a new neoHub provider
func NewProvider(username, password, baseURL string, validator neohub.Validator, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	client := neohub.NewClient(neohub.Credentials{
		Username: username,
		Password: password,
		BaseURL:  baseURL,
	}, logger)
	return &Provider{
		client:      client,
		authManager: NewAuthManager(client),
		validator:   validator,
		logger:      logger,
	}
}

// NewProviderFromSettings creates a provider from a config settings map
func NewProviderFromSettings(settings map[string]any, validator neohub.Validator, logger *slog.Logger) (*Provider, error) {
	username, _ := settings["username"].(string)
	password, _ := settings["password"].(string)
	baseURL, _ := settings["base_url"].(string)
	if username == "" || password == "" {
		return nil, fmt.Errorf("neohub provider requires username and password settings")
	}
	return NewProvider(username, password, baseURL, validator, logger), nil
}

// Info returns metadata about the provider
func (p *Provider) Info() model.ProviderInfo {
	return model.ProviderInfo{
		Name:        providerName,
		Version:     "1.0.0",
		Description: "Heatmiser neoHub cloud provider",
	}
}

// Auth returns the authentication manager for this provider
func (p *Provider) Auth() model.AuthManager {
	return p.authManager
}

// Client exposes the underlying hub client for command-side callers
func (p *Provider) Client() *neohub.Client {
	return p.client
}

// Validator returns the temperature plausibility validator in use
func (p *Provider) Validator() neohub.Validator {
	return p.validator
}

// ListDevices returns all hub devices on the account. The device list
// is only delivered at login, so this always performs a fresh login.
func (p *Provider) ListDevices(ctx context.Context) ([]model.DeviceRef, error) {
	if err := p.authManager.RefreshToken(ctx); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	hubDevices := p.authManager.Devices()
	devices := make([]model.DeviceRef, 0, len(hubDevices))
	for _, d := range hubDevices {
		devices = append(devices, deviceRef(d))
	}
	return devices, nil
}

// FindDevice resolves a device ID against the device list cached at
// the most recent login. A miss triggers one re-login in case the
// device was added to the account after the cache was taken.
func (p *Provider) FindDevice(ctx context.Context, deviceID string) (model.DeviceRef, bool, error) {
	if err := p.authManager.ensureSession(ctx); err != nil {
		return model.DeviceRef{}, false, err
	}

	for _, d := range p.authManager.Devices() {
		if d.DeviceID == deviceID {
			return deviceRef(d), true, nil
		}
	}

	if err := p.authManager.RefreshToken(ctx); err != nil {
		return model.DeviceRef{}, false, err
	}
	for _, d := range p.authManager.Devices() {
		if d.DeviceID == deviceID {
			return deviceRef(d), true, nil
		}
	}
	return model.DeviceRef{}, false, nil
}

// GetZoneRows returns the current live-info rows for one device. The
// zone kind and reading validity are recomputed on every fetch.
func (p *Provider) GetZoneRows(ctx context.Context, device model.DeviceRef) ([]model.ZoneRow, error) {
	if err := p.authManager.ensureSession(ctx); err != nil {
		return nil, err
	}

	zones, decodeErrs, err := p.client.FetchZoneData(ctx, device.ID)
	if errors.Is(err, neohub.ErrNotAuthenticated) {
		// Token dropped out from under us; one re-login, one retry.
		if err := p.authManager.RefreshToken(ctx); err != nil {
			return nil, err
		}
		zones, decodeErrs, err = p.client.FetchZoneData(ctx, device.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching zone data for %s: %w", device.ID, err)
	}

	for _, decodeErr := range decodeErrs {
		p.logger.Warn("Dropped malformed zone record",
			"device_id", device.ID, "error", decodeErr.Err)
	}

	collectedAt := time.Now().UTC()
	rows := make([]model.ZoneRow, 0, len(zones))
	for _, zone := range zones {
		kind := neohub.Classify(zone)
		rows = append(rows, model.ZoneRow{
			Device:      device,
			ZoneName:    zone.ZoneName,
			Kind:        string(kind),
			CollectedAt: collectedAt,

			Mode:           zone.HCMode,
			ActualTempText: zone.ActualTemp,
			SetTempText:    zone.SetTemp,
			HumidityPct:    zone.RelativeHumidity,
			ModulationPct:  zone.ModulationLevel,
			ActiveProfile:  zone.ActiveProfile,

			HeatingOn:    zone.HeatOn,
			WindowOpen:   zone.WindowOpen,
			LowBattery:   zone.LowBattery,
			TimerOn:      zone.TimerOn,
			HoldOn:       zone.HoldOn,
			ValidReading: p.validator.IsValidTemperatureIn(zone.ActualTemp, kind, device.TempFormat),
		})
	}
	return rows, nil
}

// GetHistory returns the history payload for one zone
func (p *Provider) GetHistory(ctx context.Context, device model.DeviceRef, zoneName string) (model.HistoryRow, error) {
	if err := p.authManager.ensureSession(ctx); err != nil {
		return model.HistoryRow{}, err
	}

	raw, err := p.client.FetchHistory(ctx, device.ID, zoneName)
	if errors.Is(err, neohub.ErrNotAuthenticated) {
		if err := p.authManager.RefreshToken(ctx); err != nil {
			return model.HistoryRow{}, err
		}
		raw, err = p.client.FetchHistory(ctx, device.ID, zoneName)
	}
	if err != nil {
		return model.HistoryRow{}, fmt.Errorf("fetching history for %s/%s: %w", device.ID, zoneName, err)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.HistoryRow{}, fmt.Errorf("decoding history payload: %w", err)
	}

	return model.HistoryRow{
		Device:    device,
		ZoneName:  zoneName,
		FetchedAt: time.Now().UTC(),
		Payload:   payload,
	}, nil
}

// ScanProblems flags zones and devices needing attention across the
// account's devices.
func (p *Provider) ScanProblems(ctx context.Context) ([]model.Problem, error) {
	if err := p.authManager.ensureSession(ctx); err != nil {
		return nil, err
	}

	hubProblems := neohub.ScanDevices(ctx, p.client, p.authManager.Devices(), p.validator)
	problems := make([]model.Problem, 0, len(hubProblems))
	for _, hp := range hubProblems {
		problems = append(problems, model.Problem{
			Device: hp.Device,
			Zone:   hp.Zone,
			Issue:  hp.Issue,
		})
	}
	return problems, nil
}

func deviceRef(d neohub.Device) model.DeviceRef {
	return model.DeviceRef{
		ID:         d.DeviceID,
		Name:       d.DeviceName,
		Provider:   providerName,
		Type:       d.Type,
		Version:    d.Version,
		Online:     d.Online,
		Away:       d.Away,
		Holiday:    d.Holiday,
		TempFormat: d.TempFormat,
		Timezone:   d.Timezone,
	}
}
