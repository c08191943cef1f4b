// Package main is the entry point for the jpapi operator CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/jpapi/cmd/jpctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
