// Package main provides the entry point for the codestream CLI.
package main

import (
	"fmt"
	"os"

	"github.com/codestream-ai/codestream/cmd/codestream/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
