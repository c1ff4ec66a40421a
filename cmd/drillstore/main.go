// Command drillstore is the entry point for the drillstore CLI.
package main

import (
	"os"

	"github.com/roach88/drillstore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
