// Package main generates the cmr-client Grafana dashboard and Prometheus rule
// files from the metrics the client exports.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/cmr-client/tools/dashgen/dashboards"
	"github.com/donaldgifford/cmr-client/tools/dashgen/rules"
	"github.com/donaldgifford/cmr-client/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file, relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	artifacts, err := generate(cfg)
	if err != nil {
		return err
	}
	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	for _, a := range artifacts {
		path := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, a.data, 0o644); err != nil { //nolint:gosec // generated config, world-readable
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("dashgen: wrote %s\n", path)
	}
	return nil
}

// generate builds and validates every enabled artifact.
func generate(cfg Config) ([]artifact, error) {
	var out []artifact

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview().Build()
		if err != nil {
			return nil, fmt.Errorf("building dashboard: %w", err)
		}
		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding dashboard: %w", err)
		}
		if res := validate.Dashboard(data, KnownMetrics); !res.Ok() {
			return nil, fmt.Errorf("dashboard: %w", res.Err())
		}
		out = append(out, artifact{
			path: filepath.Join("grafana", "data", "cmr-overview.json"),
			data: append(data, '\n'),
		})
	}

	if cfg.RulesEnabled {
		for _, f := range []struct {
			name string
			cr   rules.PrometheusRule
		}{
			{"cmr-recording-rules.yaml", rules.RecordingRules(Job)},
			{"cmr-alerts.yaml", rules.AlertRules(Job)},
		} {
			name, cr := f.name, f.cr
			if res := validate.Rules(cr, KnownMetrics); !res.Ok() {
				return nil, fmt.Errorf("%s: %w", name, res.Err())
			}
			data, err := yaml.Marshal(cr)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", name, err)
			}
			out = append(out, artifact{
				path: filepath.Join("prometheus", name),
				data: append([]byte(generatedHeader), data...),
			})
		}
	}

	return out, nil
}
