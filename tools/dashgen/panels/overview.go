package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

func statPanel(title, description, expr string) *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(expr, "", "A")).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}

// UpStat shows how many cmr-client targets are being scraped.
func UpStat() *stat.PanelBuilder {
	return statPanel("Targets Up", "Scraped cmr-client processes", `sum(up`+jobSel+`)`).
		Thresholds(ThresholdsRedGreen(1)).
		ColorMode(common.BigValueColorModeBackground).
		TextMode(common.BigValueTextModeValue)
}

// TotalRequestRate shows CMR requests per second across all operations.
func TotalRequestRate() *stat.PanelBuilder {
	return statPanel("CMR Requests/s", "Requests sent to CMR per second", `sum(cmr:requests:rate5m)`).
		Unit("reqps").
		Thresholds(ThresholdsGreenOnly())
}

// TokenFetches shows tokens fetched in the last hour. A steady climb means
// tokens are being invalidated by 401s.
func TokenFetches() *stat.PanelBuilder {
	return statPanel("Token Fetches (1h)", "Tokens fetched from the legacy token endpoint",
		`sum(increase(cmr_token_fetches_total`+jobSel+`[1h]))`).
		Thresholds(ThresholdsGreenYellowRed(10, 50)).
		ColorMode(common.BigValueColorModeBackground)
}

// UptimeStat shows time since the oldest process started.
func UptimeStat() *stat.PanelBuilder {
	return statPanel("Uptime", "Time since process start",
		`time() - min(process_start_time_seconds`+jobSel+`)`).
		Unit("s").
		Thresholds(ThresholdsGreenOnly())
}
