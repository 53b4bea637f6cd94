// Command bridge drives the MongoDB engine module from the command line.
//
// Usage:
//
//	bridge fetch --release-url https://example.com/v1
//	bridge databases --config bridge.yaml
//	bridge find shop orders --filter '{"status":"open"}' --limit 10
//	bridge shell --config bridge.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
