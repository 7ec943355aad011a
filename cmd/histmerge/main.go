package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/runnerr0/histmerge/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A .env file in the working directory may set HISTMERGE_* variables.
	_ = godotenv.Load()

	// go-flags has already printed the error.
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
