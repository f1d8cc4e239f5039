// packager builds a single static HTML page from the editor template, its
// assets and a snapshot of the data file.
package main

import (
	"os"

	"rowbook/cmd/packager/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
