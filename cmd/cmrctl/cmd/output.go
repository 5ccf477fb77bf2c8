package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tidwall/gjson"

	"github.com/donaldgifford/cmr-client/pkg/cmr"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

// printItemsTable lists search results. JSON feed entries and UMM items
// carry their identifiers in different places.
func printItemsTable(w io.Writer, format cmr.Format, items []cmr.Item) error {
	tw := newTabWriter(w)
	if format == cmr.FormatUMMJSON {
		tw.writef("CONCEPT ID\tREVISION\tNATIVE ID\tPROVIDER\n")
		for _, item := range items {
			meta := gjson.GetBytes(item, "meta")
			tw.writef("%s\t%s\t%s\t%s\n",
				meta.Get("concept-id").String(),
				meta.Get("revision-id").String(),
				truncate(meta.Get("native-id").String(), 60),
				meta.Get("provider-id").String(),
			)
		}
		return tw.finish()
	}

	tw.writef("CONCEPT ID\tTITLE\tDATA CENTER\n")
	for _, item := range items {
		tw.writef("%s\t%s\t%s\n",
			gjson.GetBytes(item, "id").String(),
			truncate(gjson.GetBytes(item, "title").String(), 60),
			gjson.GetBytes(item, "data_center").String(),
		)
	}
	return tw.finish()
}

// conceptReport is the outcome of a validate, ingest or delete call.
type conceptReport struct {
	Identifier string   `json:"identifier"`
	Result     string   `json:"result"`
	ConceptID  string   `json:"concept_id,omitempty"`
	RevisionID string   `json:"revision_id,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

func printReport(w io.Writer, r conceptReport) error {
	tw := newTabWriter(w)
	tw.writef("Identifier:\t%s\n", r.Identifier)
	tw.writef("Result:\t%s\n", r.Result)
	if r.ConceptID != "" {
		tw.writef("Concept ID:\t%s\n", r.ConceptID)
	}
	if r.RevisionID != "" {
		tw.writef("Revision ID:\t%s\n", r.RevisionID)
	}
	for _, msg := range r.Errors {
		tw.writef("Error:\t%s\n", msg)
	}
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
