package rules

// RecordingRules returns a PrometheusRule CR with the rate expressions the
// dashboard and alert rules share.
func RecordingRules(job string) PrometheusRule {
	sel := `{job="` + job + `"}`
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "cmr-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "cmr-recording",
					Rules: []Rule{
						{
							Record: "cmr:requests:rate5m",
							Expr:   `sum by (operation) (rate(cmr_requests_total` + sel + `[5m]))`,
						},
						{
							Record: "cmr:request_errors:rate5m",
							Expr:   `sum by (operation, kind) (rate(cmr_errors_total` + sel + `[5m]))`,
						},
						{
							Record: "cmr:transient_errors:rate5m",
							Expr:   `sum by (operation) (rate(cmr_errors_total{job="` + job + `",kind="transient"}[5m]))`,
						},
						{
							Record: "cmr:queue_pages:rate5m",
							Expr:   `sum(rate(cmr_queue_pages_fetched_total` + sel + `[5m]))`,
						},
						{
							Record: "cmr:queue_items:rate5m",
							Expr:   `sum(rate(cmr_queue_items_total` + sel + `[5m]))`,
						},
						{
							Record: "cmr:ingests:rate5m",
							Expr:   `sum by (concept_type) (rate(cmr_ingests_total` + sel + `[5m]))`,
						},
					},
				},
			},
		},
	}
}
