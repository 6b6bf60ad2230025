package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"daystore/internal/app"
	"daystore/internal/export"
	"daystore/internal/store"
)

type exportCmd struct {
	app    *app.App
	to     string
	format string
	index  string
	all    bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "assemble stored items into one date-aligned table" }
func (*exportCmd) Usage() string {
	return `export [-to file] [-format csv|json|parquet] [-index name,...] [-all] [item ...]

  Joins the requested items on their dates into one wide table and
  writes it to -to (stdout when omitted). By default each item
  contributes its price column; -all expands every stored field.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.to, "to", "", "output file (stdout when empty)")
	f.StringVar(&c.format, "format", "", "output format: csv, json or parquet (default from -to extension, else csv)")
	f.StringVar(&c.index, "index", "", "comma-separated indices whose members are exported")
	f.BoolVar(&c.all, "all", false, "export every field of every item, not just the price column")
}

func (c *exportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	items := f.Args()
	if c.index != "" {
		members, err := c.app.Indices.ResolveAll(splitList(c.index))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		items = append(items, members...)
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "Error: nothing to export; pass item names or -index")
		return subcommands.ExitUsageError
	}

	format := c.format
	if format == "" {
		if i := strings.LastIndexByte(c.to, '.'); i >= 0 {
			format = c.to[i+1:]
		} else {
			format = "csv"
		}
	}
	writer := export.NewWriter(format)
	if writer == nil {
		fmt.Fprintf(os.Stderr, "Error: unsupported format %q\n", format)
		return subcommands.ExitUsageError
	}

	table, err := export.Run(c.app.Store, items, export.Options{AllFields: c.all})
	if err != nil {
		var nf *store.NotFoundError
		if errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "Error: %v; import it first\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return subcommands.ExitFailure
	}

	out := os.Stdout
	if c.to != "" {
		file, err := os.Create(c.to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		out = file
	}
	if err := writer.Write(table, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", format, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
