package main

import (
	"os"

	"github.com/i474232898/country-explorer/cmd/country-explorer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
