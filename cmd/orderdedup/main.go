// Command orderdedup finds and removes logically duplicate sales orders.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/orderdedup/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
