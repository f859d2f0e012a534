package main

import (
	"os"

	"github.com/bnema/ambient-narrator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
