package neohub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the well-known Heatmiser cloud endpoint.
	DefaultBaseURL = "https://neohub.co.uk/"

	userLoginEndpoint = "hm_user_login"
)

// Credentials identify a hub account. Immutable once the session is
// constructed.
type Credentials struct {
	Username string
	Password string
	BaseURL  string
}

// Session owns the credentials and the bearer token issued at login.
// The token is written once per login and read-only during all other
// operations; a mutex guards the rare re-login case, never held across
// network calls.
type Session struct {
	credentials Credentials
	httpClient  *http.Client
	logger      *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewSession creates a session manager for the given credentials. An
// empty BaseURL falls back to DefaultBaseURL.
func NewSession(credentials Credentials, logger *slog.Logger) *Session {
	if credentials.BaseURL == "" {
		credentials.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(credentials.BaseURL, "/") {
		credentials.BaseURL += "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		credentials: credentials,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// BaseURL returns the hub endpoint this session talks to.
func (s *Session) BaseURL() string {
	return s.credentials.BaseURL
}

// RequireToken returns the current bearer token, or ErrNotAuthenticated
// if no login has succeeded. It never triggers a network call — an
// empty token is never silently sent to the server.
func (s *Session) RequireToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

// IsAuthenticated reports whether a token is currently held. The token
// may still be rejected by the server; there is no local expiry.
func (s *Session) IsAuthenticated() bool {
	_, err := s.RequireToken()
	return err == nil
}

// Login authenticates against the hub and returns the decoded device
// list. A body-level STATUS other than 1 fails with AuthError carrying
// the server-reported code and leaves no token stored. There is no
// automatic re-login: if the server later rejects the token, callers
// re-login explicitly.
func (s *Session) Login(ctx context.Context) ([]Device, error) {
	params := url.Values{}
	params.Set("USERNAME", s.credentials.Username)
	params.Set("PASSWORD", s.credentials.Password)

	body, err := s.postForm(ctx, userLoginEndpoint, params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status  int               `json:"STATUS"`
		Token   string            `json:"TOKEN"`
		Devices []json.RawMessage `json:"devices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}

	if resp.Status != 1 {
		return nil, AuthError{Status: resp.Status}
	}

	devices := make([]Device, 0, len(resp.Devices))
	for _, record := range resp.Devices {
		device, err := DecodeDevice(record)
		if err != nil {
			s.logger.Warn("Skipping malformed device record", "error", err)
			continue
		}
		devices = append(devices, device)
	}

	s.mu.Lock()
	s.token = resp.Token
	s.mu.Unlock()

	return devices, nil
}

// postForm sends a form-encoded POST to the named endpoint and returns
// the raw response body. Transport failures, including caller
// cancellation, are wrapped and surfaced immediately.
func (s *Session) postForm(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.credentials.BaseURL+endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("posting to %s: http status %d", endpoint, resp.StatusCode)
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	return body, nil
}
