package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

// IngestRate plots concepts ingested per minute by concept type.
func IngestRate() *timeseries.PanelBuilder {
	return timeseriesPanel("Ingests/min", "Concepts ingested per minute", "short", TSWidth).
		WithTarget(PromQuery(`cmr:ingests:rate5m * 60`, "{{concept_type}}", "A"))
}

// DeleteRate plots delete calls per minute by outcome.
func DeleteRate() *timeseries.PanelBuilder {
	return timeseriesPanel("Deletes/min", "Delete calls per minute by outcome", "short", TSWidth).
		WithTarget(PromQuery(
			`sum by (outcome) (rate(cmr_deletes_total`+jobSel+`[5m])) * 60`,
			"{{outcome}}", "A",
		))
}
