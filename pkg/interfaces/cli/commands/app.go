package commands

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/lotcom/pkg/application/services/allocator"
	"github.com/vsinha/lotcom/pkg/config"
	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/repositories"
	"github.com/vsinha/lotcom/pkg/infrastructure/cache"
	"github.com/vsinha/lotcom/pkg/infrastructure/events"
	"github.com/vsinha/lotcom/pkg/infrastructure/ledger"
	"github.com/vsinha/lotcom/pkg/infrastructure/locking"
	"github.com/vsinha/lotcom/pkg/infrastructure/logging"
	"github.com/vsinha/lotcom/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/lotcom/pkg/infrastructure/repositories/memory"
)

// app holds the configured collaborators for one command invocation
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	events  *events.InMemoryEventStore
	closers []func() error
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.New(level, cfg.PrettyLogs)
	if err != nil {
		return nil, err
	}
	store, err := events.NewLoggedStore(logger, events.NoticeTypes...)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, events: store}
	// runs last, once the ledgers are closed
	a.closers = append(a.closers, func() error {
		store.Wait()
		return nil
	})
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, prometheus.DefaultGatherer); err != nil {
			a.logger.Warn("metrics export failed", zap.String("path", a.cfg.MetricsFile), zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) locker() (locking.Locker, error) {
	lock := a.cfg.Lock
	switch lock.Backend {
	case config.BackendFile:
		return locking.NewFileLocker(a.cfg.Ledger.Dir, lock.WaitTimeout, a.logger), nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     lock.RedisAddr,
			Password: lock.RedisPassword,
			DB:       lock.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		return locking.NewRedisLocker(rdb, lock.KeyPrefix, lock.TTL, lock.WaitTimeout, a.logger), nil
	default:
		return nil, errors.Errorf("unknown lock backend %q", lock.Backend)
	}
}

// ledgers opens one store per serialization mode on the configured backend
func (a *app) ledgers() ([]repositories.LedgerStore, error) {
	switch a.cfg.Ledger.Backend {
	case config.BackendFile:
		locker, err := a.locker()
		if err != nil {
			return nil, err
		}
		jbk, err := ledger.NewFileStore(entities.SerializationJBK, a.cfg.Ledger.JBKPath(), locker, a.logger)
		if err != nil {
			return nil, err
		}
		lot, err := ledger.NewFileStore(entities.SerializationLot, a.cfg.Ledger.LotPath(), locker, a.logger)
		if err != nil {
			return nil, err
		}
		return []repositories.LedgerStore{jbk, lot}, nil
	case config.BackendBadger:
		db, err := ledger.OpenBadger(a.cfg.Ledger.BadgerDir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		jbk, err := ledger.NewBadgerStore(db, entities.SerializationJBK, a.logger)
		if err != nil {
			return nil, err
		}
		lot, err := ledger.NewBadgerStore(db, entities.SerializationLot, a.logger)
		if err != nil {
			return nil, err
		}
		return []repositories.LedgerStore{jbk, lot}, nil
	default:
		return nil, errors.Errorf("unknown ledger backend %q", a.cfg.Ledger.Backend)
	}
}

// directories loads the process and part CSVs behind TTL caches
func (a *app) directories() (*cache.ProcessCache, *cache.PartCache, error) {
	loader := csv.NewLoader(time.Local)

	processes, err := loader.LoadProcesses(a.cfg.Data.ProcessesFile)
	if err != nil {
		return nil, nil, err
	}
	processDir := memory.NewProcessDirectory()
	if err := processDir.LoadProcesses(processes); err != nil {
		return nil, nil, err
	}

	parts, err := loader.LoadParts(a.cfg.Data.PartsFile)
	if err != nil {
		return nil, nil, err
	}
	partDir := memory.NewPartDirectory(len(parts))
	if err := partDir.LoadParts(parts); err != nil {
		return nil, nil, err
	}

	a.logger.Debug("directories loaded", zap.Int("processes", len(processes)), zap.Int("parts", len(parts)))
	return cache.NewProcessCache(processDir, a.cfg.Cache.TTL, a.logger),
		cache.NewPartCache(partDir, a.cfg.Cache.TTL, a.logger),
		nil
}

func (a *app) allocator() (*allocator.SerialAllocator, error) {
	_, parts, err := a.directories()
	if err != nil {
		return nil, err
	}
	stores, err := a.ledgers()
	if err != nil {
		return nil, err
	}
	return allocator.New(stores, parts, a.logger,
		allocator.WithTimeout(a.cfg.Ledger.Timeout),
		allocator.WithEventStore(a.events))
}

// withApp builds the app for a command and closes it afterwards
func withApp(ctx context.Context, opts *rootOptions, fn func(context.Context, *app) error) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
