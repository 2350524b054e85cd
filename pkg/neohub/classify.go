package neohub

import (
	"strconv"
	"strings"

	"github.com/benvon/neohub-telemetry-reader/pkg/temperature"
)

// socketSentinelTemp is the actual-temperature text Heatmiser sockets
// report instead of a real reading.
const socketSentinelTemp = "255.255"

// Classify resolves whether a zone record represents a thermostat or a
// power socket. The hub never declares the kind on the wire; this is a
// best-effort heuristic over vendor conventions (the 255.255 sentinel
// and the "Socket" naming convention), kept isolated here so the rule
// can be corrected without touching decoding or command logic.
//
// The kind is derived from the record's content and must be recomputed
// whenever zone data is re-fetched.
func Classify(zone Zone) DeviceKind {
	if zone.ActualTemp == socketSentinelTemp || strings.Contains(zone.ZoneName, "Socket") {
		return KindSocket
	}
	return KindThermostat
}

// Validator judges whether a reported temperature reading is
// plausible. The range is a plausibility heuristic, not a protocol
// constraint, so it is configurable rather than hard-coded.
type Validator struct {
	MinC float64
	MaxC float64
}

// DefaultValidator covers the normal range for room temperatures.
func DefaultValidator() Validator {
	return Validator{MinC: 0, MaxC: 50}
}

// IsValidTemperature reports whether a Celsius temperature text is a
// plausible reading for the given device kind. Sockets carry no real
// temperature signal, so no socket reading is ever flagged as
// erroneous. For thermostats the text must parse as a float within
// [MinC, MaxC]. Pure, no side effects.
func (v Validator) IsValidTemperature(text string, kind DeviceKind) bool {
	return v.IsValidTemperatureIn(text, kind, "C")
}

// IsValidTemperatureIn is IsValidTemperature for a reading in the
// device's configured format ("C" or "F"). The range is configured in
// Celsius, so Fahrenheit readings are converted before the check;
// without this a normal 68F room would fall outside 0..50.
func (v Validator) IsValidTemperatureIn(text string, kind DeviceKind, tempFormat string) bool {
	if kind == KindSocket {
		return true
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return false
	}
	celsius, err := temperature.ToCelsius(&value, temperature.ForDeviceFormat(tempFormat))
	if err != nil {
		return false
	}
	return *celsius >= v.MinC && *celsius <= v.MaxC
}
