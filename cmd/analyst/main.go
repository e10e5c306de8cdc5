// Command analyst answers natural-language data questions against a SQL
// database, iteratively refining generated queries until quality gates pass.
package main

import (
	"os"

	"github.com/leapstack-labs/analyst/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
