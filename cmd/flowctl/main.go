package main

import (
	"os"

	"github.com/flowline-analytics/flowline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
