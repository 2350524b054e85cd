package model

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
)

var errNilDocument = errors.New("document is nil")

const (
	// timestampFormat is the standard timestamp format used for document IDs
	timestampFormat = "2006-01-02T15:04:05Z"
)

// IDGenerator implements deterministic document ID generation:
//   - zone_reading: device_id:zone_name:collected_at:hash(body)
//   - device_snapshot: device_id:collected_at
//   - zone_history: device_id:zone_name:imported_at
//   - zone_problem: device_name:zone_name:collected_at:hash(issue)
type IDGenerator struct{}

// NewIDGenerator creates a new ID generator
func NewIDGenerator() DocumentIDGenerator {
	return &IDGenerator{}
}

// GenerateZoneReadingID generates a deterministic ID for zone_reading documents
func (g *IDGenerator) GenerateZoneReadingID(doc *ZoneReading) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}

	collectedAtStr := doc.CollectedAt.Format(timestampFormat)
	bodyHash, err := g.hashDocument(doc)
	if err != nil {
		return "", fmt.Errorf("hashing zone reading: %w", err)
	}
	return fmt.Sprintf("%s:%s:%s:%s", doc.DeviceID, doc.ZoneName, collectedAtStr, bodyHash), nil
}

// GenerateDeviceSnapshotID generates a deterministic ID for device_snapshot documents
func (g *IDGenerator) GenerateDeviceSnapshotID(doc *DeviceSnapshot) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}

	collectedAtStr := doc.CollectedAt.Format(timestampFormat)
	return fmt.Sprintf("%s:%s", doc.DeviceID, collectedAtStr), nil
}

// GenerateZoneHistoryID generates a deterministic ID for zone_history documents
func (g *IDGenerator) GenerateZoneHistoryID(doc *ZoneHistory) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}

	importedAtStr := doc.ImportedAt.Format(timestampFormat)
	return fmt.Sprintf("%s:%s:%s", doc.DeviceID, doc.ZoneName, importedAtStr), nil
}

// GenerateZoneProblemID generates a deterministic ID for zone_problem documents
func (g *IDGenerator) GenerateZoneProblemID(doc *ZoneProblem) (string, error) {
	if doc == nil {
		return "", errNilDocument
	}

	collectedAtStr := doc.CollectedAt.Format(timestampFormat)
	issueHash := fmt.Sprintf("%x", sha256.Sum256([]byte(doc.Issue)))[:16]
	return fmt.Sprintf("%s:%s:%s:%s", doc.DeviceName, doc.ZoneName, collectedAtStr, issueHash), nil
}

// hashDocument creates a hash of the document body
func (g *IDGenerator) hashDocument(doc any) (string, error) {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshaling document for hash: %w", err)
	}
	hash := sha256.Sum256(docBytes)
	return fmt.Sprintf("%x", hash)[:16], nil // Use first 16 characters
}
