// Package main is the entry point for hlsvodctl.
package main

import (
	"os"

	"github.com/hlsvod/originserver/cmd/hlsvodctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
