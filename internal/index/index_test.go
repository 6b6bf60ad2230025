package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver("")
	require.NoError(t, err)
	return r
}

func TestResolveKnownIndices(t *testing.T) {
	r := newResolver(t)
	assert.Equal(t, []string{"ibov", "nasdaq100", "sp500"}, r.Names())

	members, err := r.Resolve("ibov")
	require.NoError(t, err)
	require.NotEmpty(t, members)
	assert.Equal(t, "PETR4.SAO", members[0])
	assert.NotContains(t, members, "AAPL")
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := newResolver(t)
	lower, err := r.Resolve("ibov")
	require.NoError(t, err)
	upper, err := r.Resolve("  IBOV ")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
}

func TestResolveDeterministic(t *testing.T) {
	r := newResolver(t)
	a, err := r.Resolve("sp500")
	require.NoError(t, err)
	b, err := r.Resolve("sp500")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveUnknownIndex(t *testing.T) {
	r := newResolver(t)
	_, err := r.Resolve("ftse100")
	require.Error(t, err)
	var ue *UnknownIndexError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "ftse100", ue.Name)
}

func TestResolveAllFirstIndexWinsOverlap(t *testing.T) {
	r := newResolver(t)

	sp, err := r.Resolve("sp500")
	require.NoError(t, err)
	combined, err := r.ResolveAll([]string{"sp500", "nasdaq100"})
	require.NoError(t, err)

	// shared members keep sp500's positions
	assert.Equal(t, sp, combined[:len(sp)])

	// no duplicates anywhere
	seen := make(map[string]bool)
	for _, m := range combined {
		assert.False(t, seen[m], m)
		seen[m] = true
	}

	// nasdaq-only members still present, after the sp500 block
	assert.Contains(t, combined, "TMUS")
}

func TestResolveAllStopsAtUnknown(t *testing.T) {
	r := newResolver(t)
	_, err := r.ResolveAll([]string{"ibov", "nope"})
	var ue *UnknownIndexError
	require.ErrorAs(t, err, &ue)
}

func TestOverlayDirAddsAndReplaces(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "myfunds.txt"),
		[]byte("# personal fund list\ntarpon gt\nCA INDOSUEZ VITESSE\ntarpon gt\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ibov.json"),
		[]byte(`["PETR4.SAO", "VALE3.SAO"]`), 0644))

	r, err := NewResolver(dir)
	require.NoError(t, err)

	funds, err := r.Resolve("myfunds")
	require.NoError(t, err)
	assert.Equal(t, []string{"TARPON GT", "CA INDOSUEZ VITESSE"}, funds)

	ibov, err := r.Resolve("ibov")
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4.SAO", "VALE3.SAO"}, ibov)
}

func TestOverlayDirMissingIsFine(t *testing.T) {
	r, err := NewResolver(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.NotEmpty(t, r.Names())
}
