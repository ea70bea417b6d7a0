// Package main is the entry point for the syncengine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/haggle-app/syncengine/internal/synccli"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var _ = []string{commit, date}

func main() {
	if err := synccli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
