package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/netoalmanca/crypto-trader/internal/cli"
)

func main() {
	// Optional; real deployments set env vars directly.
	_ = godotenv.Load()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
