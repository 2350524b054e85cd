package neohub

import (
	"context"
	"fmt"
)

// Problem flags one zone (or a whole device) needing attention.
type Problem struct {
	Device string `json:"device"`
	Zone   string `json:"zone"`
	Issue  string `json:"issue"`
}

// ScanZones inspects already-decoded zones of one device and reports
// invalid thermostat readings, low batteries and open windows.
// tempFormat is the device's configured unit ("C" or "F"), needed to
// judge reading validity. Pure read-side aggregation, no network.
func ScanZones(deviceName, tempFormat string, zones []Zone, validator Validator) []Problem {
	var problems []Problem
	for _, zone := range zones {
		kind := Classify(zone)

		if kind == KindThermostat && !validator.IsValidTemperatureIn(zone.ActualTemp, kind, tempFormat) {
			problems = append(problems, Problem{
				Device: deviceName,
				Zone:   zone.ZoneName,
				Issue:  fmt.Sprintf("invalid temperature reading: %s", zone.ActualTemp),
			})
		}
		if zone.LowBattery {
			problems = append(problems, Problem{
				Device: deviceName,
				Zone:   zone.ZoneName,
				Issue:  "low battery",
			})
		}
		if zone.WindowOpen {
			problems = append(problems, Problem{
				Device: deviceName,
				Zone:   zone.ZoneName,
				Issue:  "window open",
			})
		}
	}
	return problems
}

// ScanDevices produces a flat problem list across a set of devices,
// fetching live data for each online device. Offline devices and
// per-device fetch failures become problems themselves; one failing
// device never blocks scanning the others.
func ScanDevices(ctx context.Context, client *Client, devices []Device, validator Validator) []Problem {
	var problems []Problem
	for _, device := range devices {
		// A cancelled scan stops here rather than recording the
		// cancellation as a problem for every remaining device.
		if ctx.Err() != nil {
			return problems
		}
		if !device.Online {
			problems = append(problems, Problem{
				Device: device.DeviceName,
				Zone:   "All Zones",
				Issue:  "device offline",
			})
			continue
		}

		zones, _, err := client.FetchZoneData(ctx, device.DeviceID)
		if err != nil {
			problems = append(problems, Problem{
				Device: device.DeviceName,
				Zone:   "All Zones",
				Issue:  fmt.Sprintf("error: %v", err),
			})
			continue
		}

		problems = append(problems, ScanZones(device.DeviceName, device.TempFormat, zones, validator)...)
	}
	return problems
}
