//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/rda/internal/config"
	"github.com/zeusync/rda/internal/observability/log"
	"github.com/zeusync/rda/internal/store"
)

func InitializeLogger(cfg *config.Config) log.Log {
	wire.Build(ProvideLogger)
	return nil
}

func InitializeStore(cfg *config.Config, logger log.Log) (*store.Store, func(), error) {
	wire.Build(StoreSet)
	return nil, nil, nil
}
