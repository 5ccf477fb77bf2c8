package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

// ServedRequestRate plots requests served by the metrics endpoint or the mock
// CMR, by route.
func ServedRequestRate() *timeseries.PanelBuilder {
	return timeseriesPanel("Served Requests", "HTTP requests served per second by route", "reqps", TSWidth).
		WithTarget(PromQuery(
			`sum by (path) (rate(cmr_server_http_requests_total`+jobSel+`[5m]))`,
			"{{path}}", "A",
		))
}

// ServedLatencyP95 plots p95 latency of served requests.
func ServedLatencyP95() *timeseries.PanelBuilder {
	return timeseriesPanel("Served Latency (p95)", "95th percentile duration of served HTTP requests", "s", TSWidth).
		WithTarget(PromQuery(p95("cmr_server_http_request_duration_seconds", "path"), "{{path}}", "A"))
}
