package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Sink publishes documents to an MQTT broker, one retained message per
// document so late subscribers see the latest state of every zone.
type Sink struct {
	client      pahomqtt.Client
	broker      string
	clientID    string
	topicPrefix string
	qos         byte
}

// NewSink creates a new MQTT sink
func NewSink(broker, clientID, username, password, topicPrefix string) *Sink {
	if clientID == "" {
		clientID = "neohub-telemetry-reader"
	}
	if topicPrefix == "" {
		topicPrefix = "neohub"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}

	return &Sink{
		client:      pahomqtt.NewClient(opts),
		broker:      broker,
		clientID:    clientID,
		topicPrefix: topicPrefix,
		qos:         1,
	}
}

// NewSinkFromSettings creates a sink from a config settings map
func NewSinkFromSettings(settings map[string]any) (*Sink, error) {
	broker, _ := settings["broker"].(string)
	if broker == "" {
		return nil, fmt.Errorf("mqtt sink requires a broker setting")
	}
	clientID, _ := settings["client_id"].(string)
	username, _ := settings["username"].(string)
	password, _ := settings["password"].(string)
	topicPrefix, _ := settings["topic_prefix"].(string)
	return NewSink(broker, clientID, username, password, topicPrefix), nil
}

// Info returns metadata about the sink
func (s *Sink) Info() model.SinkInfo {
	return model.SinkInfo{
		Name:        "mqtt",
		Version:     "1.0.0",
		Description: "MQTT sink publishing retained per-zone state messages",
	}
}

// Open connects to the broker
func (s *Sink) Open(ctx context.Context) error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connecting to mqtt broker %s: timeout", s.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to mqtt broker %s: %w", s.broker, err)
	}
	return nil
}

// Write publishes each document to its topic. Failed publishes are
// reported per document; the rest still go out.
func (s *Sink) Write(ctx context.Context, docs []model.Doc) (model.WriteResult, error) {
	if len(docs) == 0 {
		return model.WriteResult{}, nil
	}
	if !s.client.IsConnected() {
		return model.WriteResult{}, fmt.Errorf("mqtt client is not connected")
	}

	result := model.WriteResult{Errors: []string{}}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		payload, err := json.Marshal(doc.Body)
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("ID %s: %v", doc.ID, err))
			continue
		}

		token := s.client.Publish(s.topicFor(doc), s.qos, true, payload)
		if !token.WaitTimeout(publishTimeout) {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("ID %s: publish timeout", doc.ID))
			continue
		}
		if err := token.Error(); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("ID %s: %v", doc.ID, err))
			continue
		}
		result.SuccessCount++
	}

	return result, nil
}

// Close disconnects from the broker
func (s *Sink) Close(ctx context.Context) error {
	s.client.Disconnect(250)
	return nil
}

// topicFor builds the topic for a document:
// <prefix>/<type>/<device>/<zone>, dropping segments the document
// does not carry.
func (s *Sink) topicFor(doc model.Doc) string {
	segments := []string{s.topicPrefix, doc.Type}

	switch body := doc.Body.(type) {
	case *model.ZoneReading:
		segments = append(segments, body.DeviceName, body.ZoneName)
	case *model.DeviceSnapshot:
		segments = append(segments, body.DeviceName)
	case *model.ZoneHistory:
		segments = append(segments, body.DeviceName, body.ZoneName)
	case *model.ZoneProblem:
		segments = append(segments, body.DeviceName, body.ZoneName)
	default:
		segments = append(segments, doc.ID)
	}

	for i, segment := range segments {
		segments[i] = sanitizeSegment(segment)
	}
	return strings.Join(segments, "/")
}

// sanitizeSegment makes a string safe as a single MQTT topic level
func sanitizeSegment(s string) string {
	if s == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer(
		"/", "_",
		"+", "_",
		"#", "_",
		" ", "_",
	)
	return replacer.Replace(s)
}
