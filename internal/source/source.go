// Package source defines the adapter surface between the store and
// remote market-data providers. One Fetcher implementation per provider;
// each normalizes its native response into the canonical series schema.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"daystore/internal/model"
)

// Fetcher retrieves the full available daily history for one item.
// Implementations own their provider's rate-limit discipline but do not
// retry transient failures; retry policy belongs to the import pipeline.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, item string) (*model.Series, model.Meta, error)
	// Concurrency is the number of fetches the provider tolerates in
	// flight at once. The pipeline must not exceed it.
	Concurrency() int
}

// Registry maps source identifiers to configured fetchers.
type Registry map[string]Fetcher

// Register adds f under its lower-cased name.
func (r Registry) Register(f Fetcher) {
	r[strings.ToLower(f.Name())] = f
}

// Lookup resolves a source identifier, case-insensitive.
func (r Registry) Lookup(name string) (Fetcher, error) {
	if f, ok := r[strings.ToLower(strings.TrimSpace(name))]; ok {
		return f, nil
	}
	known := make([]string, 0, len(r))
	for k := range r {
		known = append(known, k)
	}
	sort.Strings(known)
	return nil, fmt.Errorf("unknown source %q (options: %s)", name, strings.Join(known, ", "))
}
