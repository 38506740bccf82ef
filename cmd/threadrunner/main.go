// Command threadrunner exercises a dedicated worker thread from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "threadrunner",
		Usage: "run closures on a dedicated OS thread",
		Commands: []*cli.Command{
			RunCommand(),
			TaggedCommand(),
		},
	}
}
