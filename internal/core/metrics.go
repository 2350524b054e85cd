package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
)

// Metrics exposes polling and zone state to Prometheus. All methods
// are safe to call on a nil receiver so the scheduler can run without
// a metrics endpoint.
type Metrics struct {
	zoneTemperature *prometheus.GaugeVec
	zoneSetpoint    *prometheus.GaugeVec
	zoneHumidity    *prometheus.GaugeVec
	zoneHeatingOn   *prometheus.GaugeVec
	problemCount    *prometheus.GaugeVec
	pollErrors      *prometheus.CounterVec
	sinkErrors      *prometheus.CounterVec
	pollDuration    prometheus.Histogram
}

// NewMetrics creates and registers the metric set
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		zoneTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neohub_zone_temperature_celsius",
			Help: "Last valid measured temperature per zone",
		}, []string{"device", "zone"}),
		zoneSetpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neohub_zone_setpoint_celsius",
			Help: "Last valid target temperature per zone",
		}, []string{"device", "zone"}),
		zoneHumidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neohub_zone_humidity_percent",
			Help: "Last reported relative humidity per zone",
		}, []string{"device", "zone"}),
		zoneHeatingOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neohub_zone_heating_on",
			Help: "Whether the zone is currently calling for heat (1/0)",
		}, []string{"device", "zone"}),
		problemCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "neohub_problems",
			Help: "Problems flagged in the most recent polling cycle",
		}, []string{"provider"}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neohub_poll_errors_total",
			Help: "Total polling failures per provider",
		}, []string{"provider"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neohub_sink_errors_total",
			Help: "Total write failures per sink",
		}, []string{"sink"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "neohub_poll_duration_seconds",
			Help:    "Duration of a full polling cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.zoneTemperature,
		m.zoneSetpoint,
		m.zoneHumidity,
		m.zoneHeatingOn,
		m.problemCount,
		m.pollErrors,
		m.sinkErrors,
		m.pollDuration,
	)
	return m
}

// ObserveZoneReading updates per-zone gauges from a canonical reading
func (m *Metrics) ObserveZoneReading(reading *model.ZoneReading) {
	if m == nil || reading == nil {
		return
	}

	labels := prometheus.Labels{"device": reading.DeviceName, "zone": reading.ZoneName}
	if reading.ActualTempC != nil {
		m.zoneTemperature.With(labels).Set(*reading.ActualTempC)
	}
	if reading.SetTempC != nil {
		m.zoneSetpoint.With(labels).Set(*reading.SetTempC)
	}
	if reading.HumidityPct != nil {
		m.zoneHumidity.With(labels).Set(float64(*reading.HumidityPct))
	}

	heating := 0.0
	if reading.HeatingOn {
		heating = 1.0
	}
	m.zoneHeatingOn.With(labels).Set(heating)
}

// SetProblemCount records how many problems the latest cycle flagged
func (m *Metrics) SetProblemCount(provider string, count int) {
	if m == nil {
		return
	}
	m.problemCount.WithLabelValues(provider).Set(float64(count))
}

// IncPollError counts one polling failure
func (m *Metrics) IncPollError(provider string) {
	if m == nil {
		return
	}
	m.pollErrors.WithLabelValues(provider).Inc()
}

// IncSinkError counts one sink write failure
func (m *Metrics) IncSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// ObservePollDuration records the duration of one polling cycle
func (m *Metrics) ObservePollDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.pollDuration.Observe(d.Seconds())
}
