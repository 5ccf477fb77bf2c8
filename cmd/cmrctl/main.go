// Package main is the entry point for the cmrctl CLI.
package main

import (
	"github.com/donaldgifford/cmr-client/cmd/cmrctl/cmd"
)

func main() {
	cmd.Execute()
}
