// loof is an lsof-compatible process/open-file introspector with an
// optional interactive TUI.
package main

import (
	"fmt"
	"os"

	"loof/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
