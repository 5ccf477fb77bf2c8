// Package dashboards assembles Grafana dashboards from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/cmr-client/tools/dashgen/panels"
)

// BuildOverview constructs the CMR Client Overview dashboard.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("CMR Client Overview").
		Uid("cmr-client-overview").
		Tags([]string{"cmr", "cmr-client"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.UpStat()).
		WithPanel(panels.TotalRequestRate()).
		WithPanel(panels.TokenFetches()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("CMR Requests").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyP95()).
		WithPanel(panels.ErrorsByKind()).
		WithPanel(panels.RateLimitWait()))

	b.WithRow(dashboard.NewRowBuilder("Search").
		WithPanel(panels.PagesRate()).
		WithPanel(panels.ItemsRate()).
		WithPanel(panels.LimitReached()))

	b.WithRow(dashboard.NewRowBuilder("Ingest").
		WithPanel(panels.IngestRate()).
		WithPanel(panels.DeleteRate()))

	b.WithRow(dashboard.NewRowBuilder("Served HTTP").
		WithPanel(panels.ServedRequestRate()).
		WithPanel(panels.ServedLatencyP95()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
