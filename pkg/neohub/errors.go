package neohub

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by operations that need a session
// token before any login has succeeded. No network call is made.
var ErrNotAuthenticated = errors.New("not authenticated: call Login first")

// AuthError reports a login rejected by the server. Status is the
// body-level STATUS code the hub returned, not the HTTP status.
type AuthError struct {
	Status int
}

func (e AuthError) Error() string {
	return fmt.Sprintf("login failed with status %d", e.Status)
}

// ProtocolError reports an unexpected body-level status on a data
// read call.
type ProtocolError struct {
	Status int
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("unexpected response status %d", e.Status)
}

// CommandError reports a mutation the server rejected. Message is the
// server's ERROR field verbatim when present.
type CommandError struct {
	Status  int
	Message string
}

func (e CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("command failed with status %d", e.Status)
	}
	return fmt.Sprintf("command failed with status %d: %s", e.Status, e.Message)
}

// DecodeError reports a single malformed zone or device record. The
// offending raw record is carried for diagnostics; sibling records in
// the same response are unaffected.
type DecodeError struct {
	Record json.RawMessage
	Err    error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decoding record %s: %v", truncateRecord(e.Record), e.Err)
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

func truncateRecord(record json.RawMessage) string {
	const max = 120
	if len(record) <= max {
		return string(record)
	}
	return string(record[:max]) + "..."
}
