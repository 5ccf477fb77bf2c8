package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// PagesRate plots search pages fetched per second.
func PagesRate() *timeseries.PanelBuilder {
	return timeseriesPanel("Pages/s", "Search pages fetched by concept queues", "reqps", 8).
		WithTarget(PromQuery(`cmr:queue_pages:rate5m`, "pages/s", "A"))
}

// ItemsRate plots search results handed out per second.
func ItemsRate() *timeseries.PanelBuilder {
	return timeseriesPanel("Items/s", "Search results handed out by concept queues", "short", 8).
		WithTarget(PromQuery(`cmr:queue_items:rate5m`, "items/s", "A"))
}

// LimitReached shows searches cut off by their record limit in the last day.
func LimitReached() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Truncated Searches (24h)").
		Description("Searches that stopped at their record limit with hits remaining").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`sum(increase(cmr_queue_limit_reached_total`+jobSel+`[24h]))`, "", "A")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}
