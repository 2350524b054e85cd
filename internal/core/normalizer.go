package core

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
	"github.com/benvon/neohub-telemetry-reader/pkg/temperature"
)

// Normalizer converts provider-specific data to canonical format
type Normalizer struct {
	timezone *time.Location
	modeMap  map[string]string
	logger   *slog.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(timezone string) (*Normalizer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %s: %w", timezone, err)
	}

	return &Normalizer{
		timezone: loc,
		logger:   slog.Default(),
		modeMap: map[string]string{
			"heat":     "heat",
			"heating":  "heat",
			"cool":     "cool",
			"cooling":  "cool",
			"vent":     "vent",
			"venting":  "vent",
			"auto":     "auto",
			"off":      "off",
			"standby":  "off",
			"disabled": "off",
		},
	}, nil
}

// NormalizeZoneReading converts a provider zone row to canonical format.
// Temperatures are parsed only for thermostat zones with a reading the
// provider judged valid, and are converted to Celsius per the device's
// reported format; everything else leaves them absent.
func (n *Normalizer) NormalizeZoneReading(row model.ZoneRow, provider string) *model.ZoneReading {
	reading := &model.ZoneReading{
		Type:       "zone_reading",
		DeviceID:   row.Device.ID,
		DeviceName: row.Device.Name,
		ZoneName:   row.ZoneName,
		Kind:       row.Kind,

		CollectedAt: n.convertToUTC(row.CollectedAt),
		Mode:        n.normalizeMode(row.Mode),

		ActiveProfile: row.ActiveProfile,
		HeatingOn:     row.HeatingOn,
		WindowOpen:    row.WindowOpen,
		LowBattery:    row.LowBattery,
		TimerOn:       row.TimerOn,
		HoldOn:        row.HoldOn,
		ValidReading:  row.ValidReading,

		Provider: n.createProviderData(provider, row),
	}

	if row.Kind == "THERMOSTAT" && row.ValidReading {
		unit := temperature.ForDeviceFormat(row.Device.TempFormat)
		reading.ActualTempC = n.parseTemperature(row.ActualTempText, unit)
		reading.SetTempC = n.parseTemperature(row.SetTempText, unit)
	}

	if row.Kind == "THERMOSTAT" {
		if row.HumidityPct > 0 {
			humidity := row.HumidityPct
			reading.HumidityPct = &humidity
		}
		if row.ModulationPct > 0 {
			modulation := row.ModulationPct
			reading.ModulationPct = &modulation
		}
	}

	return reading
}

// NormalizeDeviceSnapshot summarizes one device's zone rows
func (n *Normalizer) NormalizeDeviceSnapshot(device model.DeviceRef, rows []model.ZoneRow, collectedAt time.Time, provider string) *model.DeviceSnapshot {
	activeZones := 0
	socketZones := 0
	for _, row := range rows {
		if row.HeatingOn {
			activeZones++
		}
		if row.Kind == "SOCKET" {
			socketZones++
		}
	}

	return &model.DeviceSnapshot{
		Type:        "device_snapshot",
		CollectedAt: n.convertToUTC(collectedAt),
		DeviceID:    device.ID,
		DeviceName:  device.Name,
		DeviceType:  device.Type,
		Version:     device.Version,
		Online:      device.Online,
		Away:        device.Away,
		Holiday:     device.Holiday,
		ZoneCount:   len(rows),
		ActiveZones: activeZones,
		SocketZones: socketZones,
		Provider:    n.createProviderData(provider, device),
	}
}

// NormalizeZoneHistory wraps a provider history row
func (n *Normalizer) NormalizeZoneHistory(row model.HistoryRow) *model.ZoneHistory {
	return &model.ZoneHistory{
		Type:       "zone_history",
		DeviceID:   row.Device.ID,
		DeviceName: row.Device.Name,
		ZoneName:   row.ZoneName,
		ImportedAt: n.convertToUTC(row.FetchedAt),
		Payload:    row.Payload,
	}
}

// NormalizeZoneProblem timestamps a provider problem record
func (n *Normalizer) NormalizeZoneProblem(problem model.Problem, collectedAt time.Time) *model.ZoneProblem {
	return &model.ZoneProblem{
		Type:        "zone_problem",
		CollectedAt: n.convertToUTC(collectedAt),
		DeviceName:  problem.Device,
		ZoneName:    problem.Zone,
		Issue:       problem.Issue,
	}
}

// convertToUTC converts a time to UTC, preserving zero values
func (n *Normalizer) convertToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeMode converts provider-specific mode strings to canonical format
func (n *Normalizer) normalizeMode(mode string) string {
	if mode == "" {
		return "off"
	}

	modeLower := strings.ToLower(mode)
	if normalized, ok := n.modeMap[modeLower]; ok {
		return normalized
	}

	// Log unmapped value for visibility
	n.logger.Warn("Unmapped mode value encountered",
		"original", mode,
		"lowercase", modeLower,
		"suggestion", "add to modeMap if this is a valid mode")

	return modeLower // Keep original if not recognized
}

// parseTemperature parses a temperature text and converts it to Celsius.
// Returns nil when the text does not parse or conversion fails.
func (n *Normalizer) parseTemperature(text string, unit temperature.Unit) *float64 {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	converted, err := temperature.ToCelsius(&value, unit)
	if err != nil {
		n.logger.Warn("Temperature conversion failed", "text", text, "unit", unit, "error", err)
		return nil
	}
	return converted
}

// createProviderData creates a provider-specific data section
func (n *Normalizer) createProviderData(provider string, data any) map[string]any {
	return map[string]any{
		provider: data,
	}
}
