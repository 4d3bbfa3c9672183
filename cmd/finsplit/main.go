package main

import (
	"os"

	"github.com/finsplit-dev/finsplit/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
