package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Producer API keys are commonly kept in a local .env.
	_ = godotenv.Load()
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
