package neohub

import (
	"context"
	"net/http"
	"testing"
)

func TestScanZones(t *testing.T) {
	zones := []Zone{
		{ZoneName: "Living Room", ActualTemp: "21.5"},
		{ZoneName: "Bedroom", ActualTemp: "-127.0"},
		{ZoneName: "Hall", ActualTemp: "19.0", LowBattery: true, WindowOpen: true},
		{ZoneName: "Garage Socket", ActualTemp: "255.255"},
	}

	problems := ScanZones("Home Hub", "C", zones, DefaultValidator())

	expected := []Problem{
		{Device: "Home Hub", Zone: "Bedroom", Issue: "invalid temperature reading: -127.0"},
		{Device: "Home Hub", Zone: "Hall", Issue: "low battery"},
		{Device: "Home Hub", Zone: "Hall", Issue: "window open"},
	}

	if len(problems) != len(expected) {
		t.Fatalf("Expected %d problems, got %d: %v", len(expected), len(problems), problems)
	}
	for i, want := range expected {
		if problems[i] != want {
			t.Errorf("Problem %d: expected %+v, got %+v", i, want, problems[i])
		}
	}
}

func TestScanZonesFahrenheitDevice(t *testing.T) {
	zones := []Zone{
		{ZoneName: "Living Room", ActualTemp: "68.0"},
		{ZoneName: "Boiler Room", ActualTemp: "200.0"},
	}

	problems := ScanZones("US Hub", "F", zones, DefaultValidator())

	if len(problems) != 1 {
		t.Fatalf("Expected 1 problem, got %d: %v", len(problems), problems)
	}
	want := Problem{Device: "US Hub", Zone: "Boiler Room", Issue: "invalid temperature reading: 200.0"}
	if problems[0] != want {
		t.Errorf("Expected %+v, got %+v", want, problems[0])
	}
}

func TestScanDevicesOfflineAndFetchErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hm_user_login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 1, "TOKEN": "tok", "devices": []}`))
	})
	mux.HandleFunc("/hm_cache_value", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.PostForm.Get("device_id") {
		case "dev-good":
			_, _ = w.Write([]byte(`{"STATUS": 1, "CACHE_VALUE": {"live_info": {"devices": [
				{"ZONE_NAME": "Office", "ACTUAL_TEMP": "21.0", "LOW_BATTERY": true}
			]}}}`))
		default:
			_, _ = w.Write([]byte(`{"STATUS": 500}`))
		}
	})

	client := newTestClient(t, mux)
	if _, err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	devices := []Device{
		{DeviceID: "dev-off", DeviceName: "Cabin", Online: false},
		{DeviceID: "dev-good", DeviceName: "House", Online: true},
		{DeviceID: "dev-bad", DeviceName: "Annex", Online: true},
	}

	problems := ScanDevices(context.Background(), client, devices, DefaultValidator())

	if len(problems) != 3 {
		t.Fatalf("Expected 3 problems, got %d: %v", len(problems), problems)
	}
	if problems[0].Issue != "device offline" || problems[0].Device != "Cabin" {
		t.Errorf("Expected offline problem first, got %+v", problems[0])
	}
	if problems[1].Issue != "low battery" || problems[1].Zone != "Office" {
		t.Errorf("Expected low battery problem, got %+v", problems[1])
	}
	if problems[2].Device != "Annex" {
		t.Errorf("Expected fetch-error problem for Annex, got %+v", problems[2])
	}
}

func TestScanDevicesStopsOnCancelledContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hm_user_login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 1, "TOKEN": "tok", "devices": []}`))
	})

	client := newTestClient(t, mux)
	if _, err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	devices := []Device{
		{DeviceID: "dev-1", DeviceName: "House", Online: true},
		{DeviceID: "dev-2", DeviceName: "Annex", Online: true},
	}

	// The cancellation must not be recorded as a per-device problem.
	problems := ScanDevices(ctx, client, devices, DefaultValidator())
	if len(problems) != 0 {
		t.Errorf("Expected no problems after cancellation, got %v", problems)
	}
}
