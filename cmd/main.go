package main

import (
	"os"

	"forest-valley-trail/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
