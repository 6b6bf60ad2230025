package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"daystore/internal/app"
	"daystore/internal/importer"
)

type importCmd struct {
	app   *app.App
	from  string
	index string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "fetch items from a source and merge them into the store" }
func (*importCmd) Usage() string {
	return `import [-from source] [-index name,...] [item ...]

  Fetches the daily series for each item and merges it into the store.
  Items come from the arguments, from the members of the named indices,
  or both. Per-item failures are reported but do not abort the batch.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "alphavantage", "source adapter to fetch from")
	f.StringVar(&c.index, "index", "", "comma-separated indices whose members are imported")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
		fmt.Fprintln(os.Stderr, "Error: nothing to import; pass item names or -index")
		return subcommands.ExitUsageError
	}

	fetcher, err := c.app.Sources.Lookup(c.from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	cfg := c.app.Config
	report, err := importer.Run(ctx, c.app.Store, fetcher, items, importer.Options{
		Workers:      cfg.Workers,
		MaxAttempts:  cfg.MaxAttempts,
		FetchTimeout: time.Duration(cfg.FetchTimeoutSec) * time.Second,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: import aborted: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, r := range report.Results {
		switch r.Outcome {
		case importer.OutcomeSucceeded:
			fmt.Printf("%s\t%d points\n", r.Item, r.Points)
		default:
			fmt.Printf("%s\t%s (%s)\n", r.Item, r.Outcome, r.Reason)
		}
	}
	if report.Failed() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
