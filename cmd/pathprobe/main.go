package main

import (
	"os"

	"github.com/pathprobehq/pathprobe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
