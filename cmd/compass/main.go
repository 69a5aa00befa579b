package main

import (
	"os"

	"github.com/yichen/compass/backend/cmd/compass/commands"
)

// main is the entry point for the Compass CLI
// ⭐ 统一 CLI 入口: go run ./cmd/compass [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
