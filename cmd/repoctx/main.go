// Package main provides the entry point for the repoctx CLI.
package main

import (
	"os"

	"github.com/repoctx/repoctx/cmd/repoctx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
