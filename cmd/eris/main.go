package main

import (
	"os"

	"github.com/eris-dev/eris/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
