// mzmatch - LC-MS target compound identification tool
package main

import (
	"fmt"
	"os"

	"mzmatch/cmd/mzmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
