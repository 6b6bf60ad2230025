package app

import (
	"time"

	"daystore/internal/index"
	"daystore/internal/source"
	"daystore/internal/store"
)

// App bundles the long-lived dependencies built by Wire. The store
// handle is explicit; nothing keeps process-wide mutable defaults.
type App struct {
	Config  *Config
	Store   *store.Store
	Sources source.Registry
	Indices *index.Resolver
}

// ProvideConfig loads config from environment (for Wire).
func ProvideConfig() (*Config, error) {
	return LoadConfig()
}

// ProvideStore opens the collection store under the configured data dir
// (for Wire). The cleanup closes the handle at process end.
func ProvideStore(cfg *Config) (*store.Store, func(), error) {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

// ProvideSources builds the registry of configured adapters (for Wire).
// Adapters without credentials/endpoints simply stay unregistered; the
// registry's lookup error names the ones that are available.
func ProvideSources(cfg *Config) (source.Registry, error) {
	timeout := time.Duration(cfg.FetchTimeoutSec) * time.Second
	reg := source.Registry{}

	if len(cfg.AlphaVantageKeys) > 0 {
		av, err := source.NewAlphaVantage("", cfg.AlphaVantageKeys, timeout)
		if err != nil {
			return nil, err
		}
		reg.Register(av)
	}
	if cfg.FundQuoteBaseURL != "" {
		fq, err := source.NewFundQuote(cfg.FundQuoteBaseURL, timeout)
		if err != nil {
			return nil, err
		}
		reg.Register(fq)
	}
	return reg, nil
}

// ProvideResolver builds the index resolver with the store's overlay
// directory (for Wire).
func ProvideResolver(cfg *Config) (*index.Resolver, error) {
	return index.NewResolver(cfg.IndicesDir())
}
