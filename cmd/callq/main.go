// Command callq issues server calls and replays scripted call scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/callq/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.GetExitCode(err)
	}
	return 0
}
