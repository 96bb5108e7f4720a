// Package main is the entry point for the froid CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/jmylchreest/froid/cmd/froid/commands"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()
	os.Exit(commands.Execute())
}
