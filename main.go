// Package main provides the entry point for MinorSim.
// MinorSim is a cycle-level in-order CPU pipeline timing model.
//
// For the full CLI, use: go run ./cmd/minorsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("MinorSim - In-Order Pipeline Timing Model")
	fmt.Println("")
	fmt.Println("Usage: minorsim [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to functional-unit configuration JSON file")
	fmt.Println("  -cycles      Maximum number of cycles to simulate")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/minorsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/minorsim' instead.")
	}
}
