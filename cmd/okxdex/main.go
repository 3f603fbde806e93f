package main

import (
	"os"

	"github.com/joho/godotenv"

	"okx-dex-agent/internal/app"
)

func main() {
	// Credentials are commonly kept in a local .env during development.
	_ = godotenv.Load()

	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
