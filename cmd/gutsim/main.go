// Command gutsim simulates the microbiome and metabolome of the gut.
package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
