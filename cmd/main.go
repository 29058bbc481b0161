package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/micahela/debug-the-graduate/internal/cli"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
