//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"daystore/internal/app"
)

// InitializeApp builds the App (config, store, sources, indices) via
// Wire. The returned cleanup closes the store handle.
func InitializeApp() (*app.App, func(), error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideStore,
		app.ProvideSources,
		app.ProvideResolver,
		wire.Struct(new(app.App), "*"),
	)
	return nil, nil, nil
}
