package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"

	"daystore/internal/app"
)

type listCmd struct {
	app  *app.App
	long bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list all items in the store" }
func (*listCmd) Usage() string {
	return `list [-long]

  Prints the name of every stored item, lexicographically ordered.
  With -long, also prints point count, date range, source and price field
  as CSV.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.long, "long", false, "print point count, date range and provenance")
}

func (c *listCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	names, err := c.app.Store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing store: %v\n", err)
		return subcommands.ExitFailure
	}

	if !c.long {
		for _, name := range names {
			fmt.Println(name)
		}
		return subcommands.ExitSuccess
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	_ = w.Write([]string{"item", "points", "first", "last", "source", "price_field"})
	for _, name := range names {
		series, err := c.app.Store.Read(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			return subcommands.ExitFailure
		}
		meta, err := c.app.Store.ReadMeta(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			return subcommands.ExitFailure
		}
		first, last := series.Range()
		_ = w.Write([]string{name, strconv.Itoa(series.Len()), first, last, meta.Source, meta.PriceField})
	}
	return subcommands.ExitSuccess
}
