package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	provider "github.com/benvon/neohub-telemetry-reader/internal/providers/neohub"
	"github.com/benvon/neohub-telemetry-reader/pkg/model"
	"github.com/benvon/neohub-telemetry-reader/pkg/neohub"
	"github.com/benvon/neohub-telemetry-reader/pkg/temperature"
)

// Response represents a standard API response
type Response struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// Handler serves the hub API over one provider account
type Handler struct {
	provider *provider.Provider
	logger   *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(p *provider.Provider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{provider: p, logger: logger}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/devices", h.handleListDevices)
	mux.HandleFunc("GET /api/v1/devices/{id}/zones", h.handleListZones)
	mux.HandleFunc("GET /api/v1/devices/{id}/zones/{zone}/history", h.handleHistory)
	mux.HandleFunc("POST /api/v1/devices/{id}/zones/{zone}/temperature", h.handleSetTemperature)
	mux.HandleFunc("POST /api/v1/devices/{id}/zones/{zone}/mode", h.handleSetMode)
	mux.HandleFunc("POST /api/v1/devices/{id}/away", h.handleSetAway)
	mux.HandleFunc("GET /api/v1/problems", h.handleProblems)

	// Catch-all handler for undefined routes
	mux.HandleFunc("/", h.handleNotFound)
}

// handleListDevices handles the device list endpoint
func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.provider.ListDevices(r.Context())
	if err != nil {
		h.sendProviderError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, Response{
		Success:   true,
		Data:      devices,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// handleListZones handles the live zone data endpoint
func (h *Handler) handleListZones(w http.ResponseWriter, r *http.Request) {
	device, ok := h.findDevice(w, r)
	if !ok {
		return
	}

	rows, err := h.provider.GetZoneRows(r.Context(), device)
	if err != nil {
		h.sendProviderError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, Response{
		Success:   true,
		Data:      rows,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// handleHistory handles the zone history endpoint
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	device, ok := h.findDevice(w, r)
	if !ok {
		return
	}

	history, err := h.provider.GetHistory(r.Context(), device, r.PathValue("zone"))
	if err != nil {
		h.sendProviderError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, Response{
		Success:   true,
		Data:      history,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// handleSetTemperature handles the zone setpoint endpoint. The request
// carries Celsius; devices configured in Fahrenheit get the setpoint
// converted before it goes to the hub.
func (h *Handler) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemperatureC *float64 `json:"temperature_c"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TemperatureC == nil {
		sendErrorResponse(w, http.StatusBadRequest, "Request body must carry temperature_c", r.URL.Path)
		return
	}

	device, ok := h.findDevice(w, r)
	if !ok {
		return
	}

	value, err := temperature.FromCelsius(*body.TemperatureC, temperature.ForDeviceFormat(device.TempFormat))
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, err.Error(), r.URL.Path)
		return
	}

	if err := h.provider.Client().SetTemperature(r.Context(), device.ID, r.PathValue("zone"), value); err != nil {
		h.sendProviderError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, Response{
		Success:   true,
		Message:   "Temperature updated",
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// handleSetMode handles the zone mode endpoint
func (h *Handler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "Request body must carry mode", r.URL.Path)
		return
	}

	mode, ok := parseMode(body.Mode)
	if !ok {
		sendErrorResponse(w, http.StatusBadRequest, "Mode must be one of heat, cool, vent", r.URL.Path)
		return
	}

	err := h.provider.Client().SetMode(r.Context(), r.PathValue("id"), r.PathValue("zone"), mode)
	if err != nil {
		h.sendProviderError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, Response{
		Success:   true,
		Message:   "Mode updated",
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// handleSetAway handles the device away mode endpoint
func (h *Handler) handleSetAway(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		sendErrorResponse(w, http.StatusBadRequest, "Request body must carry enabled", r.URL.Path)
		return
	}

	err := h.provider.Client().SetAwayMode(r.Context(), r.PathValue("id"), *body.Enabled)
	if err != nil {
		h.sendProviderError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, Response{
		Success:   true,
		Message:   "Away mode updated",
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// handleProblems handles the anomaly scan endpoint
func (h *Handler) handleProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.provider.ScanProblems(r.Context())
	if err != nil {
		h.sendProviderError(w, r, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, Response{
		Success:   true,
		Data:      problems,
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// handleNotFound handles undefined routes
func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	sendErrorResponse(w, http.StatusNotFound, "Endpoint not found", r.URL.Path)
}

// findDevice resolves the {id} path segment against the provider's
// cached device list, writing a 404 when it matches nothing.
func (h *Handler) findDevice(w http.ResponseWriter, r *http.Request) (device model.DeviceRef, ok bool) {
	deviceID := r.PathValue("id")

	device, found, err := h.provider.FindDevice(r.Context(), deviceID)
	if err != nil {
		h.sendProviderError(w, r, err)
		return device, false
	}
	if !found {
		sendErrorResponse(w, http.StatusNotFound, "Device not found: "+deviceID, r.URL.Path)
		return device, false
	}
	return device, true
}

// sendProviderError maps hub client errors onto HTTP status codes
func (h *Handler) sendProviderError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("Request failed", "path", r.URL.Path, "error", err)

	var cmdErr neohub.CommandError
	var authErr neohub.AuthError
	switch {
	case errors.As(err, &cmdErr):
		sendErrorResponse(w, http.StatusBadGateway, cmdErr.Error(), r.URL.Path)
	case errors.As(err, &authErr), errors.Is(err, neohub.ErrNotAuthenticated):
		sendErrorResponse(w, http.StatusUnauthorized, err.Error(), r.URL.Path)
	default:
		sendErrorResponse(w, http.StatusInternalServerError, err.Error(), r.URL.Path)
	}
}

func parseMode(s string) (neohub.Mode, bool) {
	switch neohub.Mode(strings.ToUpper(s)) {
	case neohub.ModeHeat:
		return neohub.ModeHeat, true
	case neohub.ModeCool:
		return neohub.ModeCool, true
	case neohub.ModeVent:
		return neohub.ModeVent, true
	}
	return "", false
}

// sendJSONResponse sends a JSON response with the given status code and data
func sendJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sendErrorResponse sends an error response with the given status code and message
func sendErrorResponse(w http.ResponseWriter, statusCode int, message, path string) {
	sendJSONResponse(w, statusCode, ErrorResponse{
		Success:   false,
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		Path:      path,
	})
}
