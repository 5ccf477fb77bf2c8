// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"
	"github.com/tidwall/gjson"

	"github.com/donaldgifford/cmr-client/tools/dashgen/rules"
)

// histogramSuffixes are stripped before looking a series up in the known set.
var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

// Result collects problems found in one artifact. Errors fail generation;
// warnings do not.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

// Err joins the errors, or returns nil.
func (r Result) Err() error {
	if r.Ok() {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, errors.New(e))
	}
	return errors.Join(errs...)
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Dashboard checks every target expression in a dashboard's JSON model,
// including panels nested in rows.
func Dashboard(model []byte, known map[string]bool) Result {
	var res Result
	if !gjson.ValidBytes(model) {
		res.errorf("dashboard is not valid JSON")
		return res
	}

	var walk func(panels gjson.Result)
	walk = func(panels gjson.Result) {
		panels.ForEach(func(_, panel gjson.Result) bool {
			title := panel.Get("title").String()
			targets := panel.Get("targets").Array()
			if panel.Get("type").String() != "row" && len(targets) == 0 {
				res.Warnings = append(res.Warnings, fmt.Sprintf("panel %q has no targets", title))
			}
			for _, target := range targets {
				res.expr("panel "+title, target.Get("expr").String(), known)
			}
			walk(panel.Get("panels"))
			return true
		})
	}
	walk(gjson.GetBytes(model, "panels"))

	return res
}

// Rules checks every rule in a PrometheusRule. Alerts must carry a severity
// and a summary.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for r := range cr.Rules() {
		where := "rule " + r.Name()
		if r.Name() == "" {
			res.errorf("%s: rule has neither record nor alert", cr.Metadata.Name)
			continue
		}
		res.expr(where, r.Expr, known)
		if r.Alert != "" {
			if r.Labels["severity"] == "" {
				res.errorf("%s: missing severity label", where)
			}
			if r.Annotations["summary"] == "" {
				res.errorf("%s: missing summary annotation", where)
			}
		}
	}
	return res
}

// Metrics returns the metric names an expression selects.
func Metrics(expr string) ([]string, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, err
	}

	var names []string
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		if vs, ok := n.(*parser.VectorSelector); ok && vs.Name != "" {
			names = append(names, vs.Name)
		}
		return nil
	})
	return names, nil
}

func (r *Result) expr(where, expr string, known map[string]bool) {
	if strings.TrimSpace(expr) == "" {
		r.errorf("%s: empty expression", where)
		return
	}
	names, err := Metrics(expr)
	if err != nil {
		r.errorf("%s: %v", where, err)
		return
	}
	for _, name := range names {
		if !known[baseName(name)] {
			r.errorf("%s: unknown metric %q", where, name)
		}
	}
}

func baseName(name string) string {
	for _, suffix := range histogramSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok {
			return base
		}
	}
	return name
}
