package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

type searchOptions struct {
	format   string
	limit    int
	pageSize int
}

func searchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <collections|granules> [key=value ...]",
		Short: "Search CMR for collections or granules",
		Long: "Runs a paged search and prints every result up to the record limit.\n" +
			"Query parameters are passed through to CMR as given; keys may repeat.",
		Example: `  cmrctl search collections short_name=MOD09GA
  cmrctl search granules short_name=MOD09GA temporal=2024-01-01T00:00:00Z,2024-01-02T00:00:00Z --limit 500
  cmrctl search granules collection_concept_id=C1234-LPDAAC_ECS --format umm --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "echo10", "result format (echo10, umm)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of results; -1 for no limit (default from config)")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "results per request, 1-2000 (default from config)")

	return cmd
}

func runSearch(cmd *cobra.Command, a *app, args []string, opts searchOptions) error {
	conceptType, err := cmr.ParseConceptType(args[0])
	if err != nil {
		return err
	}
	params, err := cmr.ParseParams(args[1:])
	if err != nil {
		return err
	}
	format, err := cmr.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	query := cmr.SearchQuery{
		ConceptType: conceptType,
		Params:      params,
		Format:      format,
		PageSize:    opts.pageSize,
		RecordLimit: opts.limit,
	}

	ctx := cmd.Context()
	queue, err := a.client.Queue(ctx, query)
	if err != nil {
		return err
	}

	items := []cmr.Item{}
	for item, err := range queue.All(ctx) {
		if err != nil {
			return fmt.Errorf("searching %s: %w", conceptType.Plural(), err)
		}
		items = append(items, item)
	}

	a.logger.Info("search complete",
		"concept_type", conceptType,
		"hits", queue.TotalHits(),
		"returned", len(items),
		"pages", queue.Fetches(),
	)

	if a.jsonOutput() {
		return outputJSON(cmd.OutOrStdout(), items)
	}
	return printItemsTable(cmd.OutOrStdout(), format, items)
}
