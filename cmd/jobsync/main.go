package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal in production; variables then come from the environment.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
