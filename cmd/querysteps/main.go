// Command querysteps decomposes SQL queries into evaluation steps.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/querysteps/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
