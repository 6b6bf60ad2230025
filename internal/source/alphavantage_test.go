package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daystore/internal/model"
)

const avDailyBody = `{
  "Meta Data": {"2. Symbol": "PETR4.SAO"},
  "Time Series (Daily)": {
    "2024-01-03": {
      "1. open": "27.50", "2. high": "27.72", "3. low": "27.44",
      "4. close": "27.65", "5. adjusted close": "27.65", "6. volume": "25318200",
      "7. dividend amount": "0.0000", "8. split coefficient": "1.0"
    },
    "2024-01-02": {
      "1. open": "27.27", "2. high": "27.59", "3. low": "27.13",
      "4. close": "27.40", "5. adjusted close": "27.40", "6. volume": "27414700",
      "7. dividend amount": "0.0000", "8. split coefficient": "1.0"
    }
  }
}`

func newAVServer(t *testing.T, status int, body string) *AlphaVantage {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", r.URL.Query().Get("function"))
		assert.NotEmpty(t, r.URL.Query().Get("apikey"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	av, err := NewAlphaVantage(srv.URL, []string{"testkey"}, 5*time.Second)
	require.NoError(t, err)
	return av
}

func TestAlphaVantageFetch(t *testing.T) {
	av := newAVServer(t, http.StatusOK, avDailyBody)

	series, meta, err := av.Fetch(context.Background(), "PETR4.SAO")
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())

	// dates sorted ascending regardless of response object order
	first, last := series.Range()
	assert.Equal(t, "2024-01-02", first)
	assert.Equal(t, "2024-01-03", last)

	p := series.Points()[0]
	open, ok := p.Get(model.FieldOpen)
	require.True(t, ok)
	assert.Equal(t, 27.27, open)
	adj, ok := p.Get(model.FieldAdjClose)
	require.True(t, ok)
	assert.Equal(t, 27.40, adj)
	vol, ok := p.Get(model.FieldVolume)
	require.True(t, ok)
	assert.Equal(t, 27414700.0, vol)

	// dividend amount and split coefficient are dropped, not errors
	assert.Equal(t,
		[]string{model.FieldOpen, model.FieldHigh, model.FieldLow, model.FieldClose, model.FieldAdjClose, model.FieldVolume},
		series.FieldNames())

	assert.Equal(t, model.FieldAdjClose, meta.PriceField)
	assert.Equal(t, "alphavantage", meta.Source)
	assert.False(t, meta.UpdatedAt.IsZero())
}

func TestAlphaVantageUnknownSymbol(t *testing.T) {
	av := newAVServer(t, http.StatusOK, `{"Error Message": "Invalid API call. Please retry or visit the documentation"}`)

	_, _, err := av.Fetch(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestAlphaVantageBadKeyIsFatal(t *testing.T) {
	av := newAVServer(t, http.StatusOK, `{"Error Message": "the parameter apikey is invalid or missing"}`)

	_, _, err := av.Fetch(context.Background(), "PETR4.SAO")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestAlphaVantageRateLimitNoteIsTransient(t *testing.T) {
	av := newAVServer(t, http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`)

	_, _, err := av.Fetch(context.Background(), "PETR4.SAO")
	require.Error(t, err)
	assert.Equal(t, KindTransient, Kind(err))
}

func TestAlphaVantageServerErrorIsTransient(t *testing.T) {
	av := newAVServer(t, http.StatusBadGateway, "upstream down")

	_, _, err := av.Fetch(context.Background(), "PETR4.SAO")
	require.Error(t, err)
	assert.Equal(t, KindTransient, Kind(err))
	assert.False(t, IsFatal(err))
}

func TestAlphaVantageMissingSeriesIsFatal(t *testing.T) {
	av := newAVServer(t, http.StatusOK, `{"Meta Data": {}}`)

	_, _, err := av.Fetch(context.Background(), "PETR4.SAO")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestAlphaVantageRequiresKey(t *testing.T) {
	_, err := NewAlphaVantage("", nil, time.Second)
	require.Error(t, err)
}

func TestLimiterSpacesRequests(t *testing.T) {
	l := NewLimiter(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "k"))
	require.NoError(t, l.Wait(context.Background(), "k"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// distinct keys do not wait on each other
	start = time.Now()
	require.NoError(t, l.Wait(context.Background(), "other"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiterHonorsContext(t *testing.T) {
	l := NewLimiter(time.Minute)
	require.NoError(t, l.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
