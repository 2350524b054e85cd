package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	provider "github.com/benvon/neohub-telemetry-reader/internal/providers/neohub"
	"github.com/benvon/neohub-telemetry-reader/pkg/neohub"
)

func newTestAPI(t *testing.T, hubMux *http.ServeMux) *http.ServeMux {
	t.Helper()
	hub := httptest.NewServer(hubMux)
	t.Cleanup(hub.Close)

	p := provider.NewProvider("user@example.com", "hunter2", hub.URL, neohub.DefaultValidator(), nil)
	mux := http.NewServeMux()
	NewHandler(p, nil).RegisterRoutes(mux)
	return mux
}

func loginMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/hm_user_login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 1, "TOKEN": "tok-1", "devices": [
			{"deviceid": "dev-1", "devicename": "Home Hub", "online": true, "tempformat": "C"}
		]}`))
	})
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestListDevices(t *testing.T) {
	mux := newTestAPI(t, loginMux())

	rec := doRequest(t, mux, "GET", "/api/v1/devices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("Expected success response")
	}
	devices, ok := resp.Data.([]any)
	if !ok || len(devices) != 1 {
		t.Fatalf("Expected 1 device, got %v", resp.Data)
	}
	device := devices[0].(map[string]any)
	if device["id"] != "dev-1" || device["name"] != "Home Hub" {
		t.Errorf("Unexpected device: %v", device)
	}
}

func TestListZones(t *testing.T) {
	hubMux := loginMux()
	hubMux.HandleFunc("/hm_cache_value", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 1, "CACHE_VALUE": {"live_info": {"devices": [
			{"ZONE_NAME": "Living Room", "ACTUAL_TEMP": "21.5", "HEAT_ON": true}
		]}}}`))
	})
	mux := newTestAPI(t, hubMux)

	rec := doRequest(t, mux, "GET", "/api/v1/devices/dev-1/zones", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	rows, ok := resp.Data.([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("Expected 1 zone row, got %v", resp.Data)
	}
	row := rows[0].(map[string]any)
	if row["zone_name"] != "Living Room" || row["kind"] != "THERMOSTAT" {
		t.Errorf("Unexpected zone row: %v", row)
	}
}

func TestListZonesUnknownDevice(t *testing.T) {
	mux := newTestAPI(t, loginMux())

	rec := doRequest(t, mux, "GET", "/api/v1/devices/no-such/zones", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestSetTemperature(t *testing.T) {
	hubMux := loginMux()
	hubMux.HandleFunc("/hm_set_temp", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("zone") != "Living Room" || r.PostForm.Get("temperature") != "21.5" {
			t.Errorf("Unexpected form params: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"STATUS": 1}`))
	})
	mux := newTestAPI(t, hubMux)

	rec := doRequest(t, mux, "POST", "/api/v1/devices/dev-1/zones/Living%20Room/temperature",
		`{"temperature_c": 21.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetTemperatureFahrenheitDevice(t *testing.T) {
	hubMux := http.NewServeMux()
	hubMux.HandleFunc("/hm_user_login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 1, "TOKEN": "tok-1", "devices": [
			{"deviceid": "dev-1", "devicename": "US Hub", "online": true, "tempformat": "F"}
		]}`))
	})
	hubMux.HandleFunc("/hm_set_temp", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		// 20C converts to 68F on the way to the hub.
		if r.PostForm.Get("temperature") != "68" {
			t.Errorf("Expected temperature 68, got %q", r.PostForm.Get("temperature"))
		}
		_, _ = w.Write([]byte(`{"STATUS": 1}`))
	})
	mux := newTestAPI(t, hubMux)

	rec := doRequest(t, mux, "POST", "/api/v1/devices/dev-1/zones/Living%20Room/temperature",
		`{"temperature_c": 20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeviceLookupReusesSession(t *testing.T) {
	logins := 0
	hubMux := http.NewServeMux()
	hubMux.HandleFunc("/hm_user_login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		_, _ = w.Write([]byte(`{"STATUS": 1, "TOKEN": "tok-1", "devices": [
			{"deviceid": "dev-1", "devicename": "Home Hub", "online": true, "tempformat": "C"}
		]}`))
	})
	hubMux.HandleFunc("/hm_cache_value", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 1, "CACHE_VALUE": {"live_info": {"devices": []}}}`))
	})
	mux := newTestAPI(t, hubMux)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, mux, "GET", "/api/v1/devices/dev-1/zones", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	if logins != 1 {
		t.Errorf("Expected 1 login across repeated requests, got %d", logins)
	}
}

func TestSetTemperatureMissingBody(t *testing.T) {
	mux := newTestAPI(t, loginMux())

	rec := doRequest(t, mux, "POST", "/api/v1/devices/dev-1/zones/Hall/temperature", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	mux := newTestAPI(t, loginMux())

	rec := doRequest(t, mux, "POST", "/api/v1/devices/dev-1/zones/Hall/mode", `{"mode": "frost"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestSetModeUppercases(t *testing.T) {
	hubMux := loginMux()
	hubMux.HandleFunc("/hm_set_mode", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("mode") != "COOL" {
			t.Errorf("Expected COOL, got %q", r.PostForm.Get("mode"))
		}
		_, _ = w.Write([]byte(`{"STATUS": 1}`))
	})
	mux := newTestAPI(t, hubMux)

	rec := doRequest(t, mux, "POST", "/api/v1/devices/dev-1/zones/Hall/mode", `{"mode": "cool"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetAway(t *testing.T) {
	hubMux := loginMux()
	hubMux.HandleFunc("/hm_set_away", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("away") != "1" {
			t.Errorf("Expected away=1, got %q", r.PostForm.Get("away"))
		}
		_, _ = w.Write([]byte(`{"STATUS": 1}`))
	})
	mux := newTestAPI(t, hubMux)

	rec := doRequest(t, mux, "POST", "/api/v1/devices/dev-1/away", `{"enabled": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCommandErrorSurfacesServerMessage(t *testing.T) {
	hubMux := loginMux()
	hubMux.HandleFunc("/hm_set_temp", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 0, "ERROR": "zone not found"}`))
	})
	mux := newTestAPI(t, hubMux)

	rec := doRequest(t, mux, "POST", "/api/v1/devices/dev-1/zones/Nope/temperature",
		`{"temperature_c": 20}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "zone not found") {
		t.Errorf("Expected server message in response, got %s", rec.Body.String())
	}
}

func TestProblems(t *testing.T) {
	hubMux := loginMux()
	hubMux.HandleFunc("/hm_cache_value", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"STATUS": 1, "CACHE_VALUE": {"live_info": {"devices": [
			{"ZONE_NAME": "Hall", "ACTUAL_TEMP": "19.0", "LOW_BATTERY": true}
		]}}}`))
	})
	mux := newTestAPI(t, hubMux)

	rec := doRequest(t, mux, "GET", "/api/v1/problems", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse(t, rec)
	problems, ok := resp.Data.([]any)
	if !ok || len(problems) != 1 {
		t.Fatalf("Expected 1 problem, got %v", resp.Data)
	}
	problem := problems[0].(map[string]any)
	if problem["zone"] != "Hall" || problem["issue"] != "low battery" {
		t.Errorf("Unexpected problem: %v", problem)
	}
}

func TestNotFound(t *testing.T) {
	mux := newTestAPI(t, loginMux())

	rec := doRequest(t, mux, "GET", "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}
