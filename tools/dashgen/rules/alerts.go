package rules

// AlertRules returns a PrometheusRule CR with the operational alerts for
// cmr-client.
func AlertRules(job string) PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "cmr-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "cmr-alerts",
					Rules: []Rule{
						{
							Alert: "CmrClientDown",
							Expr:  `absent(up{job="` + job + `"})`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "cmr-client metrics are not being scraped",
								"description": "No " + job + " target has been up for more than 5 minutes.",
							},
						},
						{
							Alert: "CmrTransientErrors",
							Expr:  `sum(cmr:transient_errors:rate5m) / sum(cmr:requests:rate5m) > 0.05`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "CMR is answering with transient errors",
								"description": "More than 5% of CMR requests failed with 5xx or network errors over 10 minutes.",
							},
						},
						{
							Alert: "CmrTokenFailures",
							Expr:  `sum(increase(cmr_errors_total{job="` + job + `",operation="token"}[15m])) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "CMR token requests are failing",
								"description": "Token requests failed in the last 15 minutes. Writes will be rejected until credentials are fixed.",
							},
						},
						{
							Alert: "CmrValidationFailures",
							Expr:  `sum(cmr:request_errors:rate5m{kind="validation"}) > 0`,
							For:   "15m",
							Labels: map[string]string{
								"severity": "info",
							},
							Annotations: map[string]string{
								"summary":     "CMR is rejecting metadata",
								"description": "Validate or ingest calls have returned validation errors for 15 minutes.",
							},
						},
						{
							Alert: "CmrRateLimitSaturated",
							Expr:  `histogram_quantile(0.95, sum by (le) (rate(cmr_rate_limit_wait_seconds_bucket{job="` + job + `"}[5m]))) > 1`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "info",
							},
							Annotations: map[string]string{
								"summary":     "cmr-client is throttling itself",
								"description": "p95 wait on the client-side rate limiter has exceeded 1s for 10 minutes.",
							},
						},
					},
				},
			},
		},
	}
}
