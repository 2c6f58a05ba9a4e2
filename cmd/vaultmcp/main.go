// Package main is the entry point for the vaultmcp server.
//
// Startup sequence:
//
// 1. Load configuration (file, environment, then command-line flags)
// 2. Initialize logging to stderr and the optional log file
// 3. Serve MCP requests on stdin/stdout until the client closes stdin
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
