package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/neohub-telemetry-reader/pkg/model"
	"github.com/benvon/neohub-telemetry-reader/pkg/retry"
)

// Sink implements the Elasticsearch data sink
type Sink struct {
	client          *http.Client
	retryConfig     retry.Config
	url             string
	apiKey          string
	indexPrefix     string
	createTemplates bool
}

// NewSink creates a new Elasticsearch sink
func NewSink(url, apiKey, indexPrefix string, createTemplates bool) *Sink {
	return &Sink{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryConfig:     retry.DefaultConfig(),
		url:             url,
		apiKey:          apiKey,
		indexPrefix:     indexPrefix,
		createTemplates: createTemplates,
	}
}

// NewSinkFromSettings creates a sink from a config settings map
func NewSinkFromSettings(settings map[string]any) (*Sink, error) {
	url, _ := settings["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("elasticsearch sink requires a url setting")
	}
	apiKey, _ := settings["api_key"].(string)
	indexPrefix, _ := settings["index_prefix"].(string)
	if indexPrefix == "" {
		indexPrefix = "neohub"
	}
	createTemplates, _ := settings["create_templates"].(bool)
	return NewSink(url, apiKey, indexPrefix, createTemplates), nil
}

// Info returns metadata about the sink
func (s *Sink) Info() model.SinkInfo {
	return model.SinkInfo{
		Name:        "elasticsearch",
		Version:     "1.0.0",
		Description: "Elasticsearch sink with bulk operations and deterministic IDs",
	}
}

// Open initializes the sink connection and creates index templates if needed
func (s *Sink) Open(ctx context.Context) error {
	if s.createTemplates {
		if err := s.createIndexTemplates(ctx); err != nil {
			return fmt.Errorf("creating index templates: %w", err)
		}
	}
	return nil
}

// Write writes documents to Elasticsearch using bulk operations
func (s *Sink) Write(ctx context.Context, docs []model.Doc) (model.WriteResult, error) {
	if len(docs) == 0 {
		return model.WriteResult{SuccessCount: 0, ErrorCount: 0}, nil
	}

	// Prepare bulk request
	var bulkBody strings.Builder
	for _, doc := range docs {
		indexAction := map[string]any{
			"index": map[string]any{
				"_index": s.getIndexName(doc.Type),
				"_id":    doc.ID,
			},
		}

		actionBytes, err := json.Marshal(indexAction)
		if err != nil {
			return model.WriteResult{}, fmt.Errorf("marshaling index action: %w", err)
		}
		bulkBody.Write(actionBytes)
		bulkBody.WriteString("\n")

		docBytes, err := json.Marshal(doc.Body)
		if err != nil {
			return model.WriteResult{}, fmt.Errorf("marshaling document: %w", err)
		}
		bulkBody.Write(docBytes)
		bulkBody.WriteString("\n")
	}

	// Bulk requests are idempotent thanks to deterministic IDs, so
	// transient failures are retried.
	resp, err := retry.DoWithResponse(ctx, s.retryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", s.url+"/_bulk", strings.NewReader(bulkBody.String()))
		if err != nil {
			return nil, fmt.Errorf("creating bulk request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-ndjson")
		if s.apiKey != "" {
			req.Header.Set("Authorization", "ApiKey "+s.apiKey)
		}
		return s.client.Do(req)
	})
	if err != nil {
		return model.WriteResult{}, fmt.Errorf("executing bulk request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Parse response
	var bulkResponse struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				Status int    `json:"status"`
				Error  any    `json:"error"`
				ID     string `json:"_id"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&bulkResponse); err != nil {
		return model.WriteResult{}, fmt.Errorf("decoding bulk response: %w", err)
	}

	result := model.WriteResult{
		SuccessCount: 0,
		ErrorCount:   0,
		Errors:       []string{},
	}

	// Count successes and errors
	for _, item := range bulkResponse.Items {
		if item.Index.Status >= 200 && item.Index.Status < 300 {
			result.SuccessCount++
		} else {
			result.ErrorCount++
			if item.Index.Error != nil {
				errorBytes, _ := json.Marshal(item.Index.Error)
				result.Errors = append(result.Errors, fmt.Sprintf("ID %s: %s", item.Index.ID, string(errorBytes)))
			}
		}
	}

	return result, nil
}

// Close closes the sink connection
func (s *Sink) Close(ctx context.Context) error {
	// No persistent connections to close for HTTP client
	return nil
}

// getIndexName generates the index name for a document type
func (s *Sink) getIndexName(docType string) string {
	date := time.Now().Format("2006.01.02")
	return fmt.Sprintf("%s-%s-%s", s.indexPrefix, docType, date)
}

// createIndexTemplates creates Elasticsearch index templates for the document types
func (s *Sink) createIndexTemplates(ctx context.Context) error {
	templates := map[string]string{
		"zone_reading": `
{
	"index_patterns": ["` + s.indexPrefix + `-zone_reading-*"],
	"template": {
		"mappings": {
			"properties": {
				"type": {"type": "keyword"},
				"device_id": {"type": "keyword"},
				"device_name": {"type": "keyword"},
				"zone_name": {"type": "keyword"},
				"kind": {"type": "keyword"},
				"collected_at": {"type": "date"},
				"mode": {"type": "keyword"},
				"actual_temp_c": {"type": "float"},
				"set_temp_c": {"type": "float"},
				"humidity_pct": {"type": "integer"},
				"modulation_pct": {"type": "integer"},
				"active_profile": {"type": "integer"},
				"heating_on": {"type": "boolean"},
				"window_open": {"type": "boolean"},
				"low_battery": {"type": "boolean"},
				"timer_on": {"type": "boolean"},
				"hold_on": {"type": "boolean"},
				"valid_reading": {"type": "boolean"},
				"provider": {"type": "object"}
			}
		}
	}
}`,
		"device_snapshot": `
{
	"index_patterns": ["` + s.indexPrefix + `-device_snapshot-*"],
	"template": {
		"mappings": {
			"properties": {
				"type": {"type": "keyword"},
				"collected_at": {"type": "date"},
				"device_id": {"type": "keyword"},
				"device_name": {"type": "keyword"},
				"device_type": {"type": "keyword"},
				"version": {"type": "integer"},
				"online": {"type": "boolean"},
				"away": {"type": "boolean"},
				"holiday": {"type": "boolean"},
				"zone_count": {"type": "integer"},
				"active_zones": {"type": "integer"},
				"socket_zones": {"type": "integer"},
				"provider": {"type": "object"}
			}
		}
	}
}`,
		"zone_history": `
{
	"index_patterns": ["` + s.indexPrefix + `-zone_history-*"],
	"template": {
		"mappings": {
			"properties": {
				"type": {"type": "keyword"},
				"device_id": {"type": "keyword"},
				"device_name": {"type": "keyword"},
				"zone_name": {"type": "keyword"},
				"imported_at": {"type": "date"},
				"payload": {"type": "object", "enabled": false}
			}
		}
	}
}`,
		"zone_problem": `
{
	"index_patterns": ["` + s.indexPrefix + `-zone_problem-*"],
	"template": {
		"mappings": {
			"properties": {
				"type": {"type": "keyword"},
				"collected_at": {"type": "date"},
				"device_name": {"type": "keyword"},
				"zone_name": {"type": "keyword"},
				"issue": {"type": "keyword"}
			}
		}
	}
}`,
	}

	for templateName, templateBody := range templates {
		if err := s.createTemplate(ctx, templateName, templateBody); err != nil {
			return fmt.Errorf("creating template %s: %w", templateName, err)
		}
	}

	return nil
}

// createTemplate creates a single index template
func (s *Sink) createTemplate(ctx context.Context, templateName, templateBody string) error {
	req, err := http.NewRequestWithContext(ctx, "PUT", s.url+"/_index_template/"+templateName, strings.NewReader(templateBody))
	if err != nil {
		return fmt.Errorf("creating template request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing template request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("template creation failed with status %d", resp.StatusCode)
	}

	return nil
}
