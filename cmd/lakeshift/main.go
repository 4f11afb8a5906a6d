// Package main provides the lakeshift CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/lakeshift/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
