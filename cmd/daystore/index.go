package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"daystore/internal/app"
)

type indexCmd struct {
	app *app.App
}

func (*indexCmd) Name() string     { return "index" }
func (*indexCmd) Synopsis() string { return "list known indices or resolve their members" }
func (*indexCmd) Usage() string {
	return `index [name ...]

  Without arguments, prints the names of every known index. With
  arguments, prints the members of the named indices in order, each
  member once.
`
}

func (*indexCmd) SetFlags(*flag.FlagSet) {}

func (c *indexCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		for _, name := range c.app.Indices.Names() {
			fmt.Println(name)
		}
		return subcommands.ExitSuccess
	}

	members, err := c.app.Indices.ResolveAll(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	for _, m := range members {
		fmt.Println(m)
	}
	return subcommands.ExitSuccess
}
