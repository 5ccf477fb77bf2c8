package main

import "errors"

// Job is the Prometheus job label cmr-client targets are scraped under.
const Job = "cmr-client"

// KnownMetrics is the set of metric names exported by cmr-client plus the
// recording rule names referenced in dashboards and alerts. Histogram series
// are listed by their base name.
var KnownMetrics = map[string]bool{
	// CMR request metrics.
	"cmr_request_duration_seconds": true,
	"cmr_requests_total":           true,
	"cmr_errors_total":             true,

	// Search queue metrics.
	"cmr_queue_pages_fetched_total": true,
	"cmr_queue_items_total":         true,
	"cmr_queue_limit_reached_total": true,

	// Write path metrics.
	"cmr_ingests_total": true,
	"cmr_deletes_total": true,

	// Throttling and auth.
	"cmr_rate_limit_wait_seconds": true,
	"cmr_token_fetches_total":     true,

	// Served HTTP (metrics endpoint, mock CMR).
	"cmr_server_http_request_duration_seconds": true,
	"cmr_server_http_requests_total":           true,

	// Recording rules.
	"cmr:requests:rate5m":         true,
	"cmr:request_errors:rate5m":   true,
	"cmr:transient_errors:rate5m": true,
	"cmr:queue_pages:rate5m":      true,
	"cmr:queue_items:rate5m":      true,
	"cmr:ingests:rate5m":          true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig generates everything into ../../deploy, relative to
// tools/dashgen/.
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
