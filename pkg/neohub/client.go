package neohub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

const (
	cacheValueEndpoint = "hm_cache_value"
	setTempEndpoint    = "hm_set_temp"
	setModeEndpoint    = "hm_set_mode"
	setAwayEndpoint    = "hm_set_away"
	getHistoryEndpoint = "hm_get_history"

	// defaultCacheValueRequest is the fixed capability list requested
	// from the cache endpoint.
	defaultCacheValueRequest = "engineers,comfort,profile0,timeclock0,system,device_list,timeclock,live_info"
)

// Client orchestrates the session, codec and classifier into the
// public hub operations. All calls are synchronous request/response;
// the only shared mutable state is the session token, so a single
// client is safe for concurrent use.
type Client struct {
	session *Session
	logger  *slog.Logger
}

// NewClient creates a hub client for the given credentials. The caller
// owns the client handle; there is no ambient global.
func NewClient(credentials Credentials, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		session: NewSession(credentials, logger),
		logger:  logger,
	}
}

// Session exposes the session manager, mainly for authenticated-state
// checks by callers.
func (c *Client) Session() *Session {
	return c.session
}

// Login authenticates and returns the account's device list.
func (c *Client) Login(ctx context.Context) ([]Device, error) {
	return c.session.Login(ctx)
}

// FetchZoneData fetches the live-info snapshot for one device and
// decodes its zone records. Individual malformed records are reported
// in the second return value without failing the call; the successfully
// decoded subset is always returned. A body-level status other than 1
// or 201 fails with ProtocolError.
func (c *Client) FetchZoneData(ctx context.Context, deviceID string) ([]Zone, []DecodeError, error) {
	token, err := c.session.RequireToken()
	if err != nil {
		return nil, nil, err
	}

	params := url.Values{}
	params.Set("cache_value", defaultCacheValueRequest)
	params.Set("device_id", deviceID)
	params.Set("token", token)

	body, err := c.session.postForm(ctx, cacheValueEndpoint, params)
	if err != nil {
		return nil, nil, err
	}

	var resp struct {
		Status     int `json:"STATUS"`
		CacheValue struct {
			LiveInfo struct {
				Devices []json.RawMessage `json:"devices"`
			} `json:"live_info"`
		} `json:"CACHE_VALUE"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decoding cache response: %w", err)
	}

	// The cache endpoint legitimately answers with either success code.
	if resp.Status != 1 && resp.Status != 201 {
		return nil, nil, ProtocolError{Status: resp.Status}
	}

	zones, failed := DecodeZones(resp.CacheValue.LiveInfo.Devices)
	for _, decodeErr := range failed {
		c.logger.Warn("Skipping malformed zone record", "device_id", deviceID, "error", decodeErr.Err)
	}
	return zones, failed, nil
}

// SetTemperature sets the target temperature for a zone, in the
// device's configured unit. The change is optimistic: the caller
// re-fetches zone data to observe the effect.
func (c *Client) SetTemperature(ctx context.Context, deviceID, zoneName string, temp float64) error {
	params := url.Values{}
	params.Set("zone", zoneName)
	params.Set("temperature", strconv.FormatFloat(temp, 'f', -1, 64))
	return c.command(ctx, setTempEndpoint, deviceID, params)
}

// SetMode sets the heat/cool operation mode for a zone.
func (c *Client) SetMode(ctx context.Context, deviceID, zoneName string, mode Mode) error {
	params := url.Values{}
	params.Set("zone", zoneName)
	params.Set("mode", strings.ToUpper(string(mode)))
	return c.command(ctx, setModeEndpoint, deviceID, params)
}

// SetAwayMode enables or disables away mode for a whole device.
func (c *Client) SetAwayMode(ctx context.Context, deviceID string, enabled bool) error {
	params := url.Values{}
	if enabled {
		params.Set("away", "1")
	} else {
		params.Set("away", "0")
	}
	return c.command(ctx, setAwayEndpoint, deviceID, params)
}

// FetchHistory returns the raw temperature-history payload for a zone.
func (c *Client) FetchHistory(ctx context.Context, deviceID, zoneName string) (json.RawMessage, error) {
	token, err := c.session.RequireToken()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("device_id", deviceID)
	params.Set("token", token)
	params.Set("zone", zoneName)

	body, err := c.session.postForm(ctx, getHistoryEndpoint, params)
	if err != nil {
		return nil, err
	}
	if err := checkCommandStatus(body); err != nil {
		return nil, err
	}
	return body, nil
}

// command issues one mutating round-trip. Mutation failures carry the
// server's status and ERROR message verbatim, never a downgraded
// generic message.
func (c *Client) command(ctx context.Context, endpoint, deviceID string, params url.Values) error {
	token, err := c.session.RequireToken()
	if err != nil {
		return err
	}

	params.Set("device_id", deviceID)
	params.Set("token", token)

	body, err := c.session.postForm(ctx, endpoint, params)
	if err != nil {
		return err
	}
	return checkCommandStatus(body)
}

func checkCommandStatus(body json.RawMessage) error {
	var resp struct {
		Status int    `json:"STATUS"`
		Error  string `json:"ERROR"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decoding command response: %w", err)
	}
	if resp.Status != 1 {
		return CommandError{Status: resp.Status, Message: resp.Error}
	}
	return nil
}
