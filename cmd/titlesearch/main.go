// Package main provides the entry point for the titlesearch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/titlesearch/cmd/titlesearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
