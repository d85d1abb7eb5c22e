// Package main is the entry point for the vetprice CLI.
package main

import (
	"os"

	"github.com/jmylchreest/vetprice/cmd/vetprice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
