// Command sqlcomplete provides context-aware SQL completion for editors and
// the command line.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlcomplete/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
