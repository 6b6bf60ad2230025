// Package index resolves named market indices to their constituent item
// names. Built-in memberships are embedded; a store can overlay or add
// indices by dropping ticker files into its indices directory.
package index

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed data/*.txt
var builtin embed.FS

// UnknownIndexError reports a request for an index nobody defined.
type UnknownIndexError struct {
	Name string
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("unknown index %q", e.Name)
}

// Resolver holds the known index memberships. Immutable once built.
type Resolver struct {
	memberships map[string][]string
}

// NewResolver builds a resolver from the embedded indices plus any
// *.txt / *.json files under overlayDir (empty or missing dir is fine).
// Overlay files win over built-ins of the same name.
func NewResolver(overlayDir string) (*Resolver, error) {
	r := &Resolver{memberships: make(map[string][]string)}

	entries, err := fs.ReadDir(builtin, "data")
	if err != nil {
		return nil, fmt.Errorf("embedded indices: %w", err)
	}
	for _, e := range entries {
		content, err := builtin.ReadFile("data/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("embedded index %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		r.memberships[strings.ToLower(name)] = parseMembers(string(content))
	}

	if overlayDir != "" {
		if err := r.loadOverlay(overlayDir); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Resolver) loadOverlay(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("indices dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".json" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("index file %s: %w", e.Name(), err)
		}
		var members []string
		if ext == ".json" {
			var raw []string
			if err := json.Unmarshal(content, &raw); err != nil {
				return fmt.Errorf("index file %s: %w", e.Name(), err)
			}
			members = normalizeMembers(raw)
		} else {
			members = parseMembers(string(content))
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		r.memberships[strings.ToLower(name)] = members
	}
	return nil
}

// parseMembers parses one ticker per line; '#' lines are comments.
func parseMembers(s string) []string {
	var raw []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			raw = append(raw, line)
		}
	}
	return normalizeMembers(raw)
}

// normalizeMembers upper-cases, drops empties and duplicates, keeps order.
func normalizeMembers(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Names lists the known index names, sorted.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.memberships))
	for n := range r.memberships {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the ordered membership of one index, case-insensitive
// on the index name.
func (r *Resolver) Resolve(name string) ([]string, error) {
	members, ok := r.memberships[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &UnknownIndexError{Name: name}
	}
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}

// ResolveAll concatenates the memberships of the named indices, removing
// duplicates on first occurrence: the first index naming a ticker fixes
// its position.
func (r *Resolver) ResolveAll(names []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		members, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
