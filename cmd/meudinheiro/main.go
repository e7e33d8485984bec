package main

import (
	"os"

	"github.com/meudinheiro/meudinheiro/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
