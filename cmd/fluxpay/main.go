package main

import (
	"os"

	"fluxpay/cmd/fluxpay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
