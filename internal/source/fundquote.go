package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"daystore/internal/model"
)

const (
	fundQuoteName = "fundquote"

	// One request per second keeps the bulk endpoint happy.
	fundQuoteCooldown = time.Second

	fundQuoteWorkers = 4
)

// legalSuffix matches the start of a Brazilian fund's legal denomination;
// everything from there on becomes the description, the rest the name.
var legalSuffix = regexp.MustCompile(`FUNDO|CRÉDITO`)

// FundQuote fetches daily quota (NAV) history for investment funds from
// a bulk fund-data endpoint. Funds have no intraday OHLC; the series
// carries nav, flows, net assets and holder counts only.
type FundQuote struct {
	client  *resty.Client
	limiter *Limiter
}

// NewFundQuote creates the adapter for the given endpoint.
func NewFundQuote(baseURL string, timeout time.Duration) (*FundQuote, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("fundquote: no base URL configured")
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &FundQuote{
		client:  client,
		limiter: NewLimiter(fundQuoteCooldown),
	}, nil
}

func (f *FundQuote) Name() string { return fundQuoteName }

func (f *FundQuote) Concurrency() int { return fundQuoteWorkers }

type fundHistory struct {
	Name    string      `json:"name"`
	Code    int         `json:"code"`
	History []fundQuota `json:"history"`
}

type fundQuota struct {
	Date      string   `json:"date"`
	Quota     *float64 `json:"quota"`
	Inflow    *float64 `json:"inflow"`
	Outflow   *float64 `json:"outflow"`
	NetAssets *float64 `json:"net_assets"`
	Holders   *float64 `json:"holders"`
	// "variation" is derivable from quota and is dropped.
}

// Fetch retrieves the quota history for the named fund.
func (f *FundQuote) Fetch(ctx context.Context, item string) (*model.Series, model.Meta, error) {
	if err := f.limiter.Wait(ctx, fundQuoteName); err != nil {
		return nil, model.Meta{}, transient(fundQuoteName, item, err)
	}

	var payload fundHistory
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("fund", item).
		SetResult(&payload).
		Get("/funds/{fund}/history")
	if err != nil {
		return nil, model.Meta{}, transient(fundQuoteName, item, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
	case code == http.StatusNotFound:
		return nil, model.Meta{}, notFound(fundQuoteName, item)
	case code == http.StatusTooManyRequests || code >= 500:
		return nil, model.Meta{}, transient(fundQuoteName, item, fmt.Errorf("status %d", code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, model.Meta{}, fatal(fundQuoteName, item, fmt.Errorf("status %d", code))
	default:
		return nil, model.Meta{}, fatal(fundQuoteName, item, fmt.Errorf("status %d: %s", code, resp.String()))
	}

	if len(payload.History) == 0 {
		return nil, model.Meta{}, notFound(fundQuoteName, item)
	}

	sort.Slice(payload.History, func(i, j int) bool {
		return payload.History[i].Date < payload.History[j].Date
	})

	points := make([]model.Point, 0, len(payload.History))
	for _, q := range payload.History {
		p := model.Point{Date: q.Date}
		if q.Quota != nil {
			p.Set(model.FieldNAV, *q.Quota)
		}
		if q.Inflow != nil {
			p.Set(model.FieldFlowIn, *q.Inflow)
		}
		if q.Outflow != nil {
			p.Set(model.FieldFlowOut, *q.Outflow)
		}
		if q.NetAssets != nil {
			p.Set(model.FieldNetAssets, *q.NetAssets)
		}
		if q.Holders != nil {
			p.Set(model.FieldHolders, *q.Holders)
		}
		points = append(points, p)
	}

	series, err := model.NewSeries(points)
	if err != nil {
		return nil, model.Meta{}, fatal(fundQuoteName, item, err)
	}

	// The catalog key stays the requested item name; only the legal
	// denomination is kept as description.
	_, description := SplitFundName(payload.Name)
	meta := model.Meta{
		PriceField:  model.FieldNAV,
		Description: description,
		Code:        payload.Code,
		Source:      fundQuoteName,
		UpdatedAt:   time.Now().UTC(),
	}
	return series, meta, nil
}

// SplitFundName separates a fund's display name from its legal
// denomination ("FUNDO ..."/"CRÉDITO ...").
func SplitFundName(full string) (name, description string) {
	full = strings.TrimSpace(full)
	loc := legalSuffix.FindStringIndex(full)
	if loc == nil {
		return full, ""
	}
	return strings.TrimSpace(full[:loc[0]]), strings.TrimSpace(full[loc[0]:])
}
