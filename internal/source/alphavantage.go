package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"daystore/internal/model"
)

const (
	alphaVantageName    = "alphavantage"
	alphaVantageBaseURL = "https://www.alphavantage.co"

	// Free tier allows 5 req/min per key => 12s between requests per key.
	keyCooldown = 12 * time.Second
)

// AlphaVantage fetches TIME_SERIES_DAILY_ADJUSTED for stock tickers.
// Multiple API keys rotate round-robin; each key respects its own
// cooldown, so Concurrency equals the key count.
type AlphaVantage struct {
	client  *resty.Client
	keys    []string
	limiter *Limiter

	mu   sync.Mutex
	next int
}

// NewAlphaVantage creates the adapter. baseURL is overridable for tests;
// empty means the public endpoint.
func NewAlphaVantage(baseURL string, keys []string, timeout time.Duration) (*AlphaVantage, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("alphavantage: no API key configured")
	}
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &AlphaVantage{
		client:  client,
		keys:    keys,
		limiter: NewLimiter(keyCooldown),
	}, nil
}

func (a *AlphaVantage) Name() string { return alphaVantageName }

func (a *AlphaVantage) Concurrency() int { return len(a.keys) }

func (a *AlphaVantage) nextKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := a.keys[a.next%len(a.keys)]
	a.next++
	return k
}

// dailyAdjusted mirrors the fields of one day in the
// "Time Series (Daily)" object. Values arrive as strings.
type dailyAdjusted struct {
	Open     string `json:"1. open"`
	High     string `json:"2. high"`
	Low      string `json:"3. low"`
	Close    string `json:"4. close"`
	AdjClose string `json:"5. adjusted close"`
	Volume   string `json:"6. volume"`
	// "7. dividend amount" and "8. split coefficient" are dropped.
}

// Fetch retrieves the full adjusted daily history for item.
func (a *AlphaVantage) Fetch(ctx context.Context, item string) (*model.Series, model.Meta, error) {
	key := a.nextKey()
	if err := a.limiter.Wait(ctx, key); err != nil {
		return nil, model.Meta{}, transient(alphaVantageName, item, err)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY_ADJUSTED",
			"symbol":     item,
			"outputsize": "full",
			"apikey":     key,
		}).
		Get("/query")
	if err != nil {
		return nil, model.Meta{}, transient(alphaVantageName, item, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
	case code == http.StatusTooManyRequests || code >= 500:
		return nil, model.Meta{}, transient(alphaVantageName, item, fmt.Errorf("status %d", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, model.Meta{}, fatal(alphaVantageName, item, fmt.Errorf("status %d", code))
	default:
		return nil, model.Meta{}, fatal(alphaVantageName, item, fmt.Errorf("status %d: %s", code, resp.String()))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, model.Meta{}, fatal(alphaVantageName, item, fmt.Errorf("parse response: %w", err))
	}

	// AlphaVantage signals every failure inside a 200 body.
	if raw, ok := envelope["Error Message"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		if strings.Contains(strings.ToLower(msg), "apikey") {
			return nil, model.Meta{}, fatal(alphaVantageName, item, fmt.Errorf("%s", msg))
		}
		return nil, model.Meta{}, notFound(alphaVantageName, item)
	}
	for _, k := range []string{"Note", "Information"} {
		if raw, ok := envelope[k]; ok {
			var msg string
			_ = json.Unmarshal(raw, &msg)
			return nil, model.Meta{}, transient(alphaVantageName, item, fmt.Errorf("%s", msg))
		}
	}

	rawSeries, ok := envelope["Time Series (Daily)"]
	if !ok {
		return nil, model.Meta{}, fatal(alphaVantageName, item, fmt.Errorf("response has no daily series object"))
	}
	var days map[string]dailyAdjusted
	if err := json.Unmarshal(rawSeries, &days); err != nil {
		return nil, model.Meta{}, fatal(alphaVantageName, item, fmt.Errorf("parse daily series: %w", err))
	}
	if len(days) == 0 {
		return nil, model.Meta{}, notFound(alphaVantageName, item)
	}

	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]model.Point, 0, len(dates))
	for _, d := range dates {
		day := days[d]
		p := model.Point{Date: d}
		setNumeric(&p, model.FieldOpen, day.Open)
		setNumeric(&p, model.FieldHigh, day.High)
		setNumeric(&p, model.FieldLow, day.Low)
		setNumeric(&p, model.FieldClose, day.Close)
		setNumeric(&p, model.FieldAdjClose, day.AdjClose)
		setNumeric(&p, model.FieldVolume, day.Volume)
		points = append(points, p)
	}

	series, err := model.NewSeries(points)
	if err != nil {
		return nil, model.Meta{}, fatal(alphaVantageName, item, err)
	}

	meta := model.Meta{
		PriceField: model.FieldAdjClose,
		Source:     alphaVantageName,
		UpdatedAt:  time.Now().UTC(),
	}
	return series, meta, nil
}

// setNumeric parses s as a float and sets the field; empty or malformed
// values stay absent.
func setNumeric(p *model.Point, field, s string) {
	if s == "" {
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return
	}
	p.Set(field, v)
}
