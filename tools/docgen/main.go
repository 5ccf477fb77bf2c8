// Package main writes the cmrctl command reference as markdown or man pages.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/cmr-client/cmd/cmrctl/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory")
	format := flag.String("format", "markdown", "output format (markdown, man)")
	flag.Parse()

	if err := generate(*output, *format); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("cmrctl %s docs generated in %s/\n", *format, *output)
}

func generate(dir, format string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true

	switch format {
	case "markdown":
		if err := doc.GenMarkdownTree(root, dir); err != nil {
			return fmt.Errorf("generating markdown: %w", err)
		}
	case "man":
		header := &doc.GenManHeader{Title: "CMRCTL", Section: "1", Source: "cmrctl " + cmd.Version}
		if err := doc.GenManTree(root, header, dir); err != nil {
			return fmt.Errorf("generating man pages: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (want markdown or man)", format)
	}
	return nil
}
