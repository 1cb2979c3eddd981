// studio turns 3D-printable model files into product listing assets: a
// deterministic set of studio-lit renders plus canonical print dimensions
// and an estimated weight.
package main

import (
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "studio:", err)
		os.Exit(1)
	}
}
