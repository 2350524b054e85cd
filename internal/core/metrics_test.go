package core

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
)

func TestObserveZoneReading(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	temp := 21.5
	setpoint := 22.0
	humidity := 45
	metrics.ObserveZoneReading(&model.ZoneReading{
		DeviceName:  "Home Hub",
		ZoneName:    "Living Room",
		ActualTempC: &temp,
		SetTempC:    &setpoint,
		HumidityPct: &humidity,
		HeatingOn:   true,
	})

	if got := testutil.ToFloat64(metrics.zoneTemperature.WithLabelValues("Home Hub", "Living Room")); got != 21.5 {
		t.Errorf("Expected temperature gauge 21.5, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.zoneSetpoint.WithLabelValues("Home Hub", "Living Room")); got != 22.0 {
		t.Errorf("Expected setpoint gauge 22.0, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.zoneHumidity.WithLabelValues("Home Hub", "Living Room")); got != 45 {
		t.Errorf("Expected humidity gauge 45, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.zoneHeatingOn.WithLabelValues("Home Hub", "Living Room")); got != 1 {
		t.Errorf("Expected heating gauge 1, got %v", got)
	}
}

func TestObserveZoneReadingAbsentValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.ObserveZoneReading(&model.ZoneReading{
		DeviceName: "Home Hub",
		ZoneName:   "Garden Socket",
	})

	// Only the heating gauge should carry a sample for this zone.
	if count := testutil.CollectAndCount(metrics.zoneTemperature); count != 0 {
		t.Errorf("Expected no temperature samples, got %d", count)
	}
	if got := testutil.ToFloat64(metrics.zoneHeatingOn.WithLabelValues("Home Hub", "Garden Socket")); got != 0 {
		t.Errorf("Expected heating gauge 0, got %v", got)
	}
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.IncPollError("neohub")
	metrics.IncPollError("neohub")
	metrics.IncSinkError("elasticsearch")
	metrics.SetProblemCount("neohub", 3)

	if got := testutil.ToFloat64(metrics.pollErrors.WithLabelValues("neohub")); got != 2 {
		t.Errorf("Expected 2 poll errors, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.sinkErrors.WithLabelValues("elasticsearch")); got != 1 {
		t.Errorf("Expected 1 sink error, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.problemCount.WithLabelValues("neohub")); got != 3 {
		t.Errorf("Expected problem count 3, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics

	// Must not panic.
	metrics.ObserveZoneReading(&model.ZoneReading{})
	metrics.SetProblemCount("neohub", 1)
	metrics.IncPollError("neohub")
	metrics.IncSinkError("elasticsearch")
	metrics.ObservePollDuration(time.Second)
}
