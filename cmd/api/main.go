package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/littlelibrary/server/pkg/config"
	"github.com/littlelibrary/server/pkg/database"
	"github.com/littlelibrary/server/pkg/lookupcache"
	"github.com/littlelibrary/server/pkg/migrations"
	"github.com/littlelibrary/server/pkg/server"
	"github.com/littlelibrary/server/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

const cacheGCInterval = 10 * time.Minute

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting little library", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	cache, err := openLookupCache(cfg)
	if err != nil {
		log.Err(err).Fatal("lookup cache error")
	}

	gcCtx, stopGC := context.WithCancel(ctx)
	if cache != nil {
		go cache.RunGC(gcCtx, cacheGCInterval)
		log.Info("lookup cache opened", logger.Data{"path": cfg.CacheDir, "ttl": cfg.CatalogCacheTTL.String()})
	}

	srv, err := server.New(cfg, db, server.NewCollaborators(cfg, cache))
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	stopGC()
	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Err(err).Error("lookup cache close error")
		}
		log.Info("lookup cache closed")
	}

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// openLookupCache opens the catalog cache under the cache directory. An
// empty cache directory or a zero TTL disables caching.
func openLookupCache(cfg *config.Config) (*lookupcache.Cache, error) {
	if cfg.CacheDir == "" || cfg.CatalogCacheTTL <= 0 {
		return nil, nil
	}

	dir := filepath.Join(cfg.CacheDir, "catalog")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory: %s", dir)
	}

	cache, err := lookupcache.Open(dir, cfg.CatalogCacheTTL)
	return cache, errors.WithStack(err)
}
