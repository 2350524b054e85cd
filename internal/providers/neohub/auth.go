package neohub

import (
	"context"
	"fmt"
	"sync"

	"github.com/benvon/neohub-telemetry-reader/pkg/neohub"
)

// AuthManager adapts the hub's token-per-login session to the provider
// auth interface. The cloud API has no refresh grant; refreshing a
// token means a full re-login, which also re-delivers the account's
// device list, so the latest list is cached here for ListDevices.
type AuthManager struct {
	client *neohub.Client

	mu      sync.Mutex
	devices []neohub.Device
}

// NewAuthManager creates an auth manager around an existing hub client
func NewAuthManager(client *neohub.Client) *AuthManager {
	return &AuthManager{client: client}
}

// RefreshToken performs a full login and caches the returned device list
func (a *AuthManager) RefreshToken(ctx context.Context) error {
	devices, err := a.client.Login(ctx)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	a.mu.Lock()
	a.devices = devices
	a.mu.Unlock()
	return nil
}

// IsTokenValid checks if a session token is held. The token carries no
// local expiry; the server may still reject it, in which case the
// provider re-logins.
func (a *AuthManager) IsTokenValid(_ context.Context) bool {
	return a.client.Session().IsAuthenticated()
}

// Devices returns the device list captured at the most recent login
func (a *AuthManager) Devices() []neohub.Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	devices := make([]neohub.Device, len(a.devices))
	copy(devices, a.devices)
	return devices
}

// ensureSession logs in if no token is held yet
func (a *AuthManager) ensureSession(ctx context.Context) error {
	if a.IsTokenValid(ctx) {
		return nil
	}
	return a.RefreshToken(ctx)
}
