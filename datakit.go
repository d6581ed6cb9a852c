// Package datakit is an offline-first data-access layer for a user
// administration dashboard. It fronts a remote user API with three cache
// tiers (a bounded FIFO map, a timed LRU and a durable sqlite store) and
// diverts create/update/delete calls into a persistent write-intent queue
// while disconnected. View-models talk to DataLayer.Users; everything else
// (rendering, routing, validation, replaying the queue) lives outside.
package datakit

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/adminbridge/datakit/configs"
	"github.com/adminbridge/datakit/internal/application/gateway"
	"github.com/adminbridge/datakit/internal/core/ports"
	"github.com/adminbridge/datakit/internal/infrastructure/apiclient"
	"github.com/adminbridge/datakit/internal/infrastructure/connectivity"
	"github.com/adminbridge/datakit/internal/infrastructure/memcache"
	"github.com/adminbridge/datakit/internal/infrastructure/sqlitestore"
)

// DataLayer is the composed object graph. Each collaborator is constructed
// explicitly and injected; nothing here is an ambient singleton, so separate
// DataLayer instances are fully isolated (one per logical namespace).
type DataLayer struct {
	Users        ports.UserGateway
	Store        ports.OfflineStore
	Connectivity *connectivity.Monitor

	db *sqlitestore.Database
}

// New builds the full data layer from configuration. The connectivity
// monitor starts online; bind its MarkOnline/MarkOffline methods to the
// platform's connectivity events.
func New(cfg *configs.Config, logger *logrus.Logger) (*DataLayer, error) {
	db, err := sqlitestore.NewDatabase(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline store: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate offline store: %w", err)
	}

	store := sqlitestore.NewStore(db, logger)
	monitor := connectivity.NewMonitor(true, logger)
	api := apiclient.NewClient(&cfg.API, logger)

	hot := memcache.NewBounded[any](cfg.Cache.HotCapacity)
	lru := memcache.NewTimedLRU[any](cfg.Cache.LRUCapacity, cfg.Cache.DefaultTTL)

	users := gateway.NewUserGateway(hot, lru, store, monitor, api, logger)

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"store_path":   cfg.Store.Path,
			"hot_capacity": cfg.Cache.HotCapacity,
			"lru_capacity": cfg.Cache.LRUCapacity,
			"default_ttl":  cfg.Cache.DefaultTTL,
		}).Info("datakit: data layer initialized")
	}

	return &DataLayer{
		Users:        users,
		Store:        store,
		Connectivity: monitor,
		db:           db,
	}, nil
}

// Close releases the offline store's database handle.
func (d *DataLayer) Close() error {
	return d.db.Close()
}

// NewLogger builds a logrus logger from the log configuration, the same way
// an embedding application would at startup.
func NewLogger(cfg *configs.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}
