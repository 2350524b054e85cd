package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benvon/neohub-telemetry-reader/pkg/neohub"
	"github.com/benvon/neohub-telemetry-reader/pkg/temperature"
)

const usage = `Usage: neohubctl <command> [arguments]

Commands:
  devices                          List hub devices on the account
  zones <device-id>                Show live zone data for a device
  set-temp <device-id> <zone> <C>  Set a zone's target temperature
  set-mode <device-id> <zone> <heat|cool|vent>
                                   Set a zone's operating mode
  set-away <device-id> <on|off>    Enable or disable away mode
  history <device-id> <zone>       Print a zone's raw history payload
  problems                         Scan all devices for issues

Credentials are read from NEOHUB_USERNAME and NEOHUB_PASSWORD.
NEOHUB_BASE_URL overrides the cloud endpoint.
`

func main() {
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	username := os.Getenv("NEOHUB_USERNAME")
	password := os.Getenv("NEOHUB_PASSWORD")
	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "NEOHUB_USERNAME and NEOHUB_PASSWORD must be set")
		os.Exit(2)
	}

	client := neohub.NewClient(neohub.Credentials{
		Username: username,
		Password: password,
		BaseURL:  os.Getenv("NEOHUB_BASE_URL"),
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := run(ctx, client, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *neohub.Client, args []string) error {
	command, rest := args[0], args[1:]

	devices, err := client.Login(ctx)
	if err != nil {
		return err
	}

	switch command {
	case "devices":
		return printDevices(devices)
	case "zones":
		if len(rest) != 1 {
			return fmt.Errorf("usage: zones <device-id>")
		}
		return printZones(ctx, client, rest[0])
	case "set-temp":
		if len(rest) != 3 {
			return fmt.Errorf("usage: set-temp <device-id> <zone> <temperature-c>")
		}
		tempC, err := strconv.ParseFloat(rest[2], 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q: %w", rest[2], err)
		}
		// The hub expects the value in the device's configured unit.
		value, err := temperature.FromCelsius(tempC, temperature.ForDeviceFormat(deviceFormat(devices, rest[0])))
		if err != nil {
			return err
		}
		if err := client.SetTemperature(ctx, rest[0], rest[1], value); err != nil {
			return err
		}
		fmt.Printf("Set %s to %.1fC\n", rest[1], tempC)
		return nil
	case "set-mode":
		if len(rest) != 3 {
			return fmt.Errorf("usage: set-mode <device-id> <zone> <heat|cool|vent>")
		}
		mode, err := parseMode(rest[2])
		if err != nil {
			return err
		}
		if err := client.SetMode(ctx, rest[0], rest[1], mode); err != nil {
			return err
		}
		fmt.Printf("Set %s mode to %s\n", rest[1], strings.ToLower(string(mode)))
		return nil
	case "set-away":
		if len(rest) != 2 {
			return fmt.Errorf("usage: set-away <device-id> <on|off>")
		}
		enabled, err := parseOnOff(rest[1])
		if err != nil {
			return err
		}
		if err := client.SetAwayMode(ctx, rest[0], enabled); err != nil {
			return err
		}
		fmt.Printf("Away mode %s\n", rest[1])
		return nil
	case "history":
		if len(rest) != 2 {
			return fmt.Errorf("usage: history <device-id> <zone>")
		}
		return printHistory(ctx, client, rest[0], rest[1])
	case "problems":
		return printProblems(ctx, client, devices)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// deviceFormat looks up the temperature format of one device from the
// login device list; unknown devices default to Celsius.
func deviceFormat(devices []neohub.Device, deviceID string) string {
	for _, d := range devices {
		if d.DeviceID == deviceID {
			return d.TempFormat
		}
	}
	return "C"
}

func printDevices(devices []neohub.Device) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tONLINE\tAWAY\tFORMAT\tTIMEZONE")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\t%s\n",
			d.DeviceID, d.DeviceName, d.Online, d.Away, d.TempFormat, d.Timezone)
	}
	return w.Flush()
}

func printZones(ctx context.Context, client *neohub.Client, deviceID string) error {
	zones, decodeErrs, err := client.FetchZoneData(ctx, deviceID)
	if err != nil {
		return err
	}
	for _, decodeErr := range decodeErrs {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", decodeErr)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ZONE\tKIND\tTEMP\tSET\tMODE\tHEAT\tFLAGS")
	for _, zone := range zones {
		kind := neohub.Classify(zone)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			zone.ZoneName, kind, zone.ActualTemp, zone.SetTemp, zone.HCMode,
			zone.HeatOn, zoneFlags(zone))
	}
	return w.Flush()
}

func zoneFlags(zone neohub.Zone) string {
	var flags []string
	if zone.LowBattery {
		flags = append(flags, "low-battery")
	}
	if zone.WindowOpen {
		flags = append(flags, "window-open")
	}
	if zone.HoldOn {
		flags = append(flags, "hold")
	}
	if zone.TimerOn {
		flags = append(flags, "timer")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func printHistory(ctx context.Context, client *neohub.Client, deviceID, zoneName string) error {
	raw, err := client.FetchHistory(ctx, deviceID, zoneName)
	if err != nil {
		return err
	}

	var pretty any
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return fmt.Errorf("decoding history payload: %w", err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printProblems(ctx context.Context, client *neohub.Client, devices []neohub.Device) error {
	problems := neohub.ScanDevices(ctx, client, devices, neohub.DefaultValidator())
	if len(problems) == 0 {
		fmt.Println("No problems found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tZONE\tISSUE")
	for _, p := range problems {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Device, p.Zone, p.Issue)
	}
	return w.Flush()
}

func parseMode(s string) (neohub.Mode, error) {
	switch strings.ToLower(s) {
	case "heat":
		return neohub.ModeHeat, nil
	case "cool":
		return neohub.ModeCool, nil
	case "vent":
		return neohub.ModeVent, nil
	}
	return "", fmt.Errorf("unknown mode %q, must be heat, cool or vent", s)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
