package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

// RequestRate plots CMR requests per second by operation.
func RequestRate() *timeseries.PanelBuilder {
	return timeseriesPanel("Request Rate", "CMR requests per second by operation", "reqps", TSWidth/2).
		WithTarget(PromQuery(`cmr:requests:rate5m`, "{{operation}}", "A"))
}

// LatencyP95 plots p95 CMR request latency by operation.
func LatencyP95() *timeseries.PanelBuilder {
	return timeseriesPanel("Latency (p95)", "95th percentile CMR request duration by operation", "s", TSWidth/2).
		WithTarget(PromQuery(p95("cmr_request_duration_seconds", "operation"), "{{operation}}", "A"))
}

// ErrorsByKind plots failed operations per second by error kind.
func ErrorsByKind() *timeseries.PanelBuilder {
	return timeseriesPanel("Errors", "Failed CMR operations per second by kind", "reqps", TSWidth).
		WithTarget(PromQuery(`sum by (kind) (cmr:request_errors:rate5m)`, "{{kind}}", "A")).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1)).
		ColorScheme(ColorSchemeThresholds())
}

// RateLimitWait plots p95 time spent waiting on the client-side limiter.
func RateLimitWait() *timeseries.PanelBuilder {
	return timeseriesPanel("Rate Limit Wait (p95)", "95th percentile wait on the client-side rate limiter", "s", TSWidth).
		WithTarget(PromQuery(p95("cmr_rate_limit_wait_seconds", ""), "p95", "A")).
		Thresholds(ThresholdsGreenYellowRed(0.5, 1)).
		ColorScheme(ColorSchemeThresholds())
}
