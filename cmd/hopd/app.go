package main

import (
	"context"
	"fmt"
	"time"

	hop "github.com/branched-services/go-hop"
	"github.com/branched-services/go-hop/ethhost"
	"github.com/branched-services/go-hop/internal/config"
	"github.com/branched-services/go-hop/internal/logging"
	"github.com/branched-services/go-hop/store/boltstore"
	"github.com/branched-services/go-hop/store/redisstore"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// storeOpenTimeout bounds acquiring the bolt file lock.
const storeOpenTimeout = 5 * time.Second

// app is a contract wired to the configured store and ledger.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	contract *hop.Contract
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	logger, closeLog, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []hop.ContractOption{
		hop.WithStore(store),
		hop.WithLogger(logger.Named("contract")),
		hop.WithAdmin(cfg.Contract.Admin),
		hop.WithPacketLifetime(cfg.Contract.PacketLifetime),
		hop.WithNotifyLifetime(cfg.Contract.NotifyLifetime),
	}

	if len(cfg.Ledger.RPCList) > 0 {
		q, err := ethhost.New(cfg.Ledger.RPCList, cfg.Ledger.NativeDenom,
			ethhost.WithLogger(logger.Named("ethhost")),
			ethhost.WithTokens(cfg.Ledger.Tokens...),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, hop.WithBalances(q))
	} else {
		logger.Warn("no ledger endpoints configured, chains longer than one command cannot resume")
	}

	a.contract = hop.New(opts...)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (hop.Store, error) {
	addr := a.cfg.ContractAddress()

	switch a.cfg.Store.Kind {
	case config.StoreRedis:
		pool := redisstore.NewPool(a.cfg.Store.RedisAddr)
		a.closers = append(a.closers, pool.Close)
		a.logger.Info("using redis store", zap.String("addr", a.cfg.Store.RedisAddr))
		return redisstore.New(pool, addr, redisstore.WithPrefix(a.cfg.Store.RedisPrefix)), nil

	case config.StoreBolt:
		openCtx, cancel := context.WithTimeout(ctx, storeOpenTimeout)
		defer cancel()

		s, err := boltstore.Open(openCtx, a.cfg.Store.BoltPath, addr)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", a.cfg.Store.BoltPath, err)
		}
		a.closers = append(a.closers, s.Close)
		a.logger.Info("using bolt store", zap.String("path", a.cfg.Store.BoltPath))
		return s, nil

	default:
		a.logger.Info("using in-memory store, pending chains are lost on restart")
		return hop.NewMemoryStore(), nil
	}
}

func (a *app) env() hop.Env {
	return hop.Env{
		Contract:  a.cfg.ContractAddress(),
		BlockTime: time.Now().UTC(),
		ChainID:   a.cfg.Contract.ChainID,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
