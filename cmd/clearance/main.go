// Package main is the entry point for the clearance CLI.
package main

import (
	"os"

	"github.com/jmylchreest/clearance/cmd/clearance/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
