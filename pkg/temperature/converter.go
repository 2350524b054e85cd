package temperature

import (
	"fmt"
)

// Unit represents a temperature unit
type Unit string

const (
	Celsius    Unit = "celsius"
	Fahrenheit Unit = "fahrenheit"
)

// ForDeviceFormat maps a hub device's reported temperature format
// ("C" or "F") to a Unit. Unknown or empty formats default to Celsius,
// which is what hubs report when no format is set.
func ForDeviceFormat(tempFormat string) Unit {
	if tempFormat == "F" {
		return Fahrenheit
	}
	return Celsius
}

// ToCelsius converts a temperature reading in the given unit to
// Celsius. Nil passes through so absent readings stay absent.
func ToCelsius(temp *float64, unit Unit) (*float64, error) {
	if temp == nil {
		return nil, nil
	}

	var tempC float64
	switch unit {
	case Celsius:
		tempC = *temp
	case Fahrenheit:
		tempC = (*temp - 32.0) * 5.0 / 9.0
	default:
		return nil, fmt.Errorf("unsupported temperature unit: %s", unit)
	}

	return &tempC, nil
}

// FromCelsius converts a Celsius value into the given unit, for
// writing setpoints back to devices configured in Fahrenheit.
func FromCelsius(tempC float64, unit Unit) (float64, error) {
	switch unit {
	case Celsius:
		return tempC, nil
	case Fahrenheit:
		return tempC*9.0/5.0 + 32.0, nil
	default:
		return 0, fmt.Errorf("unsupported temperature unit: %s", unit)
	}
}
