// Command bpa runs a standalone Delay-Tolerant Networking Bundle Protocol
// Agent: the Bundle Processor, Routing Table, Router, Contact Manager, and
// CLA/codec abstraction scaffolding wired together per internal/config.
package main

import (
	"fmt"
	"os"

	"github.com/dtnkit/bpa/cmd/bpa/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
