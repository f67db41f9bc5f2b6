package main

import (
	"os"

	"github.com/jungtak3/uniswap-v3-data/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
