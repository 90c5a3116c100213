// Package main is the entry point for the gwaudit binary.
package main

import (
	"os"

	cli "gw-audit/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
