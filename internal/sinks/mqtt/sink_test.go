package mqtt

import (
	"context"
	"testing"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
)

func TestTopicFor(t *testing.T) {
	sink := NewSink("tcp://localhost:1883", "", "", "", "home/heating")

	tests := []struct {
		name     string
		doc      model.Doc
		expected string
	}{
		{
			name: "zone reading",
			doc: model.Doc{
				Type: "zone_reading",
				Body: &model.ZoneReading{DeviceName: "Home Hub", ZoneName: "Living Room"},
			},
			expected: "home/heating/zone_reading/Home_Hub/Living_Room",
		},
		{
			name: "device snapshot",
			doc: model.Doc{
				Type: "device_snapshot",
				Body: &model.DeviceSnapshot{DeviceName: "Home Hub"},
			},
			expected: "home/heating/device_snapshot/Home_Hub",
		},
		{
			name: "zone problem",
			doc: model.Doc{
				Type: "zone_problem",
				Body: &model.ZoneProblem{DeviceName: "Home Hub", ZoneName: "Hall"},
			},
			expected: "home/heating/zone_problem/Home_Hub/Hall",
		},
		{
			name: "zone history",
			doc: model.Doc{
				Type: "zone_history",
				Body: &model.ZoneHistory{DeviceName: "Home Hub", ZoneName: "Kitchen"},
			},
			expected: "home/heating/zone_history/Home_Hub/Kitchen",
		},
		{
			name: "unknown body falls back to document ID",
			doc: model.Doc{
				ID:   "doc-1",
				Type: "other",
				Body: map[string]any{},
			},
			expected: "home/heating/other/doc-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sink.topicFor(tt.doc); got != tt.expected {
				t.Errorf("Expected topic %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Living Room", "Living_Room"},
		{"a/b", "a_b"},
		{"temp+", "temp_"},
		{"all#", "all_"},
		{"", "unknown"},
		{"Kitchen", "Kitchen"},
	}

	for _, tt := range tests {
		if got := sanitizeSegment(tt.input); got != tt.expected {
			t.Errorf("sanitizeSegment(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestWriteEmpty(t *testing.T) {
	sink := NewSink("tcp://localhost:1883", "", "", "", "neohub")

	result, err := sink.Write(context.Background(), nil)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if result.SuccessCount != 0 || result.ErrorCount != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestWriteNotConnected(t *testing.T) {
	sink := NewSink("tcp://localhost:1883", "", "", "", "neohub")

	_, err := sink.Write(context.Background(), []model.Doc{
		{ID: "doc-1", Type: "zone_reading", Body: &model.ZoneReading{}},
	})
	if err == nil {
		t.Error("Expected error when not connected")
	}
}

func TestNewSinkFromSettings(t *testing.T) {
	if _, err := NewSinkFromSettings(map[string]any{}); err == nil {
		t.Error("Expected error for missing broker")
	}

	sink, err := NewSinkFromSettings(map[string]any{
		"broker":   "tcp://broker.local:1883",
		"username": "reader",
		"password": "secret",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sink.topicPrefix != "neohub" {
		t.Errorf("Expected default topic prefix neohub, got %s", sink.topicPrefix)
	}
	if sink.clientID != "neohub-telemetry-reader" {
		t.Errorf("Expected default client ID, got %s", sink.clientID)
	}
}
