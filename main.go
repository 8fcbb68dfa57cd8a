package main

import (
	"os"

	"github.com/gatehouse-dev/gatehouse/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	os.Exit(cmd.Execute())
}
