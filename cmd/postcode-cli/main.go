package main

import (
	"os"

	"postcode-api/cmd/postcode-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
