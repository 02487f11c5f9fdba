// The main package for the favsync executable.
package main

import (
	"github.com/JakeFAU/favsync/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
