package injector

import (
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/rda/examples/people"
	"github.com/zeusync/rda/internal/config"
	"github.com/zeusync/rda/internal/observability/log"
	"github.com/zeusync/rda/internal/store"
	"github.com/zeusync/rda/internal/store/localfs"
	"github.com/zeusync/rda/internal/store/redisstore"
	"github.com/zeusync/rda/pkg/encoding"
	"github.com/zeusync/rda/pkg/rda"
)

var StoreSet = wire.NewSet(
	ProvideCodec,
	ProvideRegistry,
	ProvideBackend,
	ProvideStore,
)

func ProvideLogger(cfg *config.Config) log.Log {
	return log.New(cfg.LogLevel())
}

func ProvideCodec(cfg *config.Config) (*rda.Codec, error) {
	return cfg.Codec.Build()
}

// ProvideRegistry returns a registry holding the example domain types.
func ProvideRegistry() (*encoding.Registry, error) {
	reg := encoding.NewRegistry()
	if err := people.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func ProvideBackend(cfg *config.Config, logger log.Log) (store.Backend, func(), error) {
	var (
		backend store.Backend
		err     error
	)
	switch cfg.Store.Backend {
	case config.BackendLocalFS:
		backend, err = localfs.New(cfg.Store.Dir)
	case config.BackendRedis:
		backend, err = redisstore.Dial(cfg.Store.Redis.Addr, redisstore.WithPrefix(cfg.Store.Redis.Prefix))
	default:
		err = fmt.Errorf("injector: unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("store backend ready", log.String("backend", cfg.Store.Backend))
	cleanup := func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing store backend", log.Error(err))
		}
	}
	return backend, cleanup, nil
}

func ProvideStore(backend store.Backend, codec *rda.Codec, reg *encoding.Registry, logger log.Log) (*store.Store, error) {
	return store.New(backend,
		store.WithCodec(codec),
		store.WithRegistry(reg),
		store.WithLogger(logger),
	)
}
