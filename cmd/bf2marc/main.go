// Command bf2marc converts BIBFRAME RDF graphs to MARC records.
package main

import (
	"os"

	"github.com/kilupskalvis/bf2marc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
