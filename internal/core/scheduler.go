package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
	"github.com/benvon/neohub-telemetry-reader/pkg/retry"
)

// OffsetStore manages persistence of polling offsets
type OffsetStore interface {
	// GetLastHistoryTime returns the last history import time for a
	// device:zone pair
	GetLastHistoryTime(ctx context.Context, key string) (time.Time, error)

	// SetLastHistoryTime sets the last history import time for a
	// device:zone pair
	SetLastHistoryTime(ctx context.Context, key string, timestamp time.Time) error

	// GetLastSnapshotTime returns the last snapshot timestamp for a device
	GetLastSnapshotTime(ctx context.Context, deviceID string) (time.Time, error)

	// SetLastSnapshotTime sets the last snapshot timestamp for a device
	SetLastSnapshotTime(ctx context.Context, deviceID string, timestamp time.Time) error
}

// MemoryOffsetStore is an in-memory implementation of OffsetStore for testing
type MemoryOffsetStore struct {
	mu                sync.RWMutex
	lastHistoryTimes  map[string]time.Time
	lastSnapshotTimes map[string]time.Time
}

// NewMemoryOffsetStore creates a new in-memory offset store
func NewMemoryOffsetStore() *MemoryOffsetStore {
	return &MemoryOffsetStore{
		lastHistoryTimes:  make(map[string]time.Time),
		lastSnapshotTimes: make(map[string]time.Time),
	}
}

// GetLastHistoryTime returns the last history import time for a device:zone pair
func (s *MemoryOffsetStore) GetLastHistoryTime(ctx context.Context, key string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHistoryTimes[key], nil
}

// SetLastHistoryTime sets the last history import time for a device:zone pair
func (s *MemoryOffsetStore) SetLastHistoryTime(ctx context.Context, key string, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHistoryTimes[key] = timestamp
	return nil
}

// GetLastSnapshotTime returns the last snapshot timestamp for a device
func (s *MemoryOffsetStore) GetLastSnapshotTime(ctx context.Context, deviceID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshotTimes[deviceID], nil
}

// SetLastSnapshotTime sets the last snapshot timestamp for a device
func (s *MemoryOffsetStore) SetLastSnapshotTime(ctx context.Context, deviceID string, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSnapshotTimes[deviceID] = timestamp
	return nil
}

// historyOffsetKey builds the offset key for a device:zone pair
func historyOffsetKey(deviceID, zoneName string) string {
	return deviceID + ":" + zoneName
}

// Scheduler manages polling of hub devices and data collection
type Scheduler struct {
	providers       []model.Provider
	sinks           []model.Sink
	normalizer      *Normalizer
	offsetStore     OffsetStore
	idGen           model.DocumentIDGenerator
	metrics         *Metrics
	pollInterval    time.Duration
	historyInterval time.Duration
	retryConfig     retry.Config
	logger          *slog.Logger
}

// NewScheduler creates a new scheduler. metrics may be nil.
func NewScheduler(
	providers []model.Provider,
	sinks []model.Sink,
	normalizer *Normalizer,
	offsetStore OffsetStore,
	metrics *Metrics,
	pollInterval, historyInterval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		providers:       providers,
		sinks:           sinks,
		normalizer:      normalizer,
		offsetStore:     offsetStore,
		idGen:           model.NewIDGenerator(),
		metrics:         metrics,
		pollInterval:    pollInterval,
		historyInterval: historyInterval,
		retryConfig:     retry.DefaultConfig(),
		logger:          logger,
	}
}

// Start begins the polling scheduler. It polls once immediately and
// then on every tick until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting hub telemetry scheduler",
		"poll_interval", s.pollInterval,
		"history_interval", s.historyInterval,
		"providers", len(s.providers),
		"sinks", len(s.sinks))

	if err := s.pollAllProviders(ctx); err != nil {
		s.logger.Error("Initial polling cycle failed", "error", err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping due to context cancellation")
			return ctx.Err()
		case <-ticker.C:
			if err := s.pollAllProviders(ctx); err != nil {
				s.logger.Error("Polling cycle failed", "error", err)
				// Continue polling even if one cycle fails
			}
		}
	}
}

// pollAllProviders runs one polling cycle across all providers
func (s *Scheduler) pollAllProviders(ctx context.Context) error {
	s.logger.Debug("Starting polling cycle")
	started := time.Now()

	for _, provider := range s.providers {
		if err := s.pollProvider(ctx, provider); err != nil {
			s.logger.Error("Failed to poll provider", "provider", provider.Info().Name, "error", err)
			s.metrics.IncPollError(provider.Info().Name)
		}
	}

	s.metrics.ObservePollDuration(time.Since(started))
	return ctx.Err()
}

// pollProvider polls all devices from a single provider
func (s *Scheduler) pollProvider(ctx context.Context, provider model.Provider) error {
	var devices []model.DeviceRef
	err := retry.Do(ctx, s.retryConfig, func() error {
		var listErr error
		devices, listErr = provider.ListDevices(ctx)
		return listErr
	})
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	providerName := provider.Info().Name
	var problems []model.Problem

	for _, device := range devices {
		if !device.Online {
			problems = append(problems, model.Problem{
				Device: device.Name,
				Zone:   "All Zones",
				Issue:  "device offline",
			})
			continue
		}

		deviceProblems, err := s.pollDevice(ctx, provider, device)
		if err != nil {
			s.logger.Error("Failed to poll device",
				"provider", providerName,
				"device", device.ID,
				"error", err)
			s.metrics.IncPollError(providerName)
			problems = append(problems, model.Problem{
				Device: device.Name,
				Zone:   "All Zones",
				Issue:  fmt.Sprintf("error: %v", err),
			})
			continue
		}
		problems = append(problems, deviceProblems...)
	}

	s.metrics.SetProblemCount(providerName, len(problems))
	return s.writeProblems(ctx, problems)
}

// pollDevice fetches one device's zones, emits reading and snapshot
// documents, reports zone problems and imports due history.
func (s *Scheduler) pollDevice(ctx context.Context, provider model.Provider, device model.DeviceRef) ([]model.Problem, error) {
	providerName := provider.Info().Name

	var rows []model.ZoneRow
	err := retry.Do(ctx, s.retryConfig, func() error {
		var fetchErr error
		rows, fetchErr = provider.GetZoneRows(ctx, device)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching zone rows: %w", err)
	}

	collectedAt := time.Now().UTC()
	if len(rows) > 0 {
		collectedAt = rows[0].CollectedAt
	}

	var docs []model.Doc
	var problems []model.Problem
	for _, row := range rows {
		reading := s.normalizer.NormalizeZoneReading(row, providerName)
		s.metrics.ObserveZoneReading(reading)

		id, err := s.idGen.GenerateZoneReadingID(reading)
		if err != nil {
			s.logger.Error("Failed to generate reading ID", "zone", row.ZoneName, "error", err)
			continue
		}
		docs = append(docs, model.Doc{ID: id, Type: reading.Type, Body: reading})

		problems = append(problems, zoneProblems(row)...)
	}

	snapshot := s.normalizer.NormalizeDeviceSnapshot(device, rows, collectedAt, providerName)
	if id, err := s.idGen.GenerateDeviceSnapshotID(snapshot); err == nil {
		docs = append(docs, model.Doc{ID: id, Type: snapshot.Type, Body: snapshot})
	} else {
		s.logger.Error("Failed to generate snapshot ID", "device", device.ID, "error", err)
	}

	if err := s.writeToAllSinks(ctx, docs); err != nil {
		return nil, fmt.Errorf("writing documents: %w", err)
	}

	if err := s.offsetStore.SetLastSnapshotTime(ctx, device.ID, collectedAt); err != nil {
		s.logger.Error("Failed to update snapshot offset", "device", device.ID, "error", err)
	}

	s.importDueHistory(ctx, provider, device, rows)

	return problems, nil
}

// zoneProblems derives problem records from a single zone row
func zoneProblems(row model.ZoneRow) []model.Problem {
	var problems []model.Problem
	if row.Kind == "THERMOSTAT" && !row.ValidReading {
		problems = append(problems, model.Problem{
			Device: row.Device.Name,
			Zone:   row.ZoneName,
			Issue:  fmt.Sprintf("invalid temperature reading: %s", row.ActualTempText),
		})
	}
	if row.LowBattery {
		problems = append(problems, model.Problem{
			Device: row.Device.Name,
			Zone:   row.ZoneName,
			Issue:  "low battery",
		})
	}
	if row.WindowOpen {
		problems = append(problems, model.Problem{
			Device: row.Device.Name,
			Zone:   row.ZoneName,
			Issue:  "window open",
		})
	}
	return problems
}

// importDueHistory imports history for zones whose last import is older
// than the history interval. Failures are logged per zone and never
// fail the polling cycle.
func (s *Scheduler) importDueHistory(ctx context.Context, provider model.Provider, device model.DeviceRef, rows []model.ZoneRow) {
	if s.historyInterval <= 0 {
		return
	}

	for _, row := range rows {
		if row.Kind != "THERMOSTAT" {
			continue
		}

		key := historyOffsetKey(device.ID, row.ZoneName)
		lastImport, err := s.offsetStore.GetLastHistoryTime(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to read history offset, assuming due", "key", key, "error", err)
		}
		if !lastImport.IsZero() && time.Since(lastImport) < s.historyInterval {
			continue
		}

		historyRow, err := provider.GetHistory(ctx, device, row.ZoneName)
		if err != nil {
			s.logger.Error("Failed to fetch history",
				"device", device.ID, "zone", row.ZoneName, "error", err)
			continue
		}

		history := s.normalizer.NormalizeZoneHistory(historyRow)
		id, err := s.idGen.GenerateZoneHistoryID(history)
		if err != nil {
			s.logger.Error("Failed to generate history ID", "zone", row.ZoneName, "error", err)
			continue
		}

		if err := s.writeToAllSinks(ctx, []model.Doc{{ID: id, Type: history.Type, Body: history}}); err != nil {
			s.logger.Error("Failed to write history",
				"device", device.ID, "zone", row.ZoneName, "error", err)
			continue
		}

		if err := s.offsetStore.SetLastHistoryTime(ctx, key, historyRow.FetchedAt); err != nil {
			s.logger.Error("Failed to update history offset", "key", key, "error", err)
		}
	}
}

// writeProblems converts and writes problem documents
func (s *Scheduler) writeProblems(ctx context.Context, problems []model.Problem) error {
	if len(problems) == 0 {
		return nil
	}

	collectedAt := time.Now().UTC()
	var docs []model.Doc
	for _, problem := range problems {
		doc := s.normalizer.NormalizeZoneProblem(problem, collectedAt)
		id, err := s.idGen.GenerateZoneProblemID(doc)
		if err != nil {
			s.logger.Error("Failed to generate problem ID", "zone", problem.Zone, "error", err)
			continue
		}
		docs = append(docs, model.Doc{ID: id, Type: doc.Type, Body: doc})
	}
	return s.writeToAllSinks(ctx, docs)
}

// writeToAllSinks writes documents to all configured sinks
func (s *Scheduler) writeToAllSinks(ctx context.Context, docs []model.Doc) error {
	if len(docs) == 0 {
		return nil
	}

	for _, sink := range s.sinks {
		result, err := sink.Write(ctx, docs)
		if err != nil {
			s.logger.Error("Failed to write to sink",
				"sink", sink.Info().Name,
				"error", err)
			s.metrics.IncSinkError(sink.Info().Name)
			continue
		}

		s.logger.Debug("Wrote to sink",
			"sink", sink.Info().Name,
			"success_count", result.SuccessCount,
			"error_count", result.ErrorCount)

		if result.ErrorCount > 0 {
			s.logger.Warn("Some documents failed to write",
				"sink", sink.Info().Name,
				"errors", result.Errors)
			s.metrics.IncSinkError(sink.Info().Name)
		}
	}

	return nil
}
