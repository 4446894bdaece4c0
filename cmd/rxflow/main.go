// Command rxflow compiles workflow graphs into stream pipelines and runs
// them.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rxflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
