package lookupcache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

// Cache stores external lookup responses keyed by request. Entries expire
// after the configured TTL; a zero TTL keeps them until they are
// overwritten.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens a cache in dir. An empty dir opens an in-memory cache.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(&badgerLogger{logger.New()})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening lookup cache at %q", dir)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	return errors.WithStack(c.db.Close())
}

// Get decodes the entry for key into v. The bool is false on a miss.
func (c *Cache) Get(_ context.Context, key string, v interface{}) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// Set encodes v and stores it under key.
func (c *Cache) Set(_ context.Context, key string, v interface{}) error {
	val, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), val)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	return errors.WithStack(err)
}

// RunGC reclaims value log space every interval until ctx is done. It is a
// no-op for in-memory caches.
func (c *Cache) RunGC(ctx context.Context, interval time.Duration) {
	if c.db.Opts().InMemory {
		return
	}

	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.db.RunValueLogGC(0.7)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.Err(err).Warn("lookup cache gc failed")
			}
		}
	}
}

// badgerLogger routes badger's internal logging through the app logger.
// Info and debug output is dropped.
type badgerLogger struct {
	log logger.Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(f, v...))
}

func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(f, v...))
}

func (*badgerLogger) Infof(string, ...interface{}) {}

func (*badgerLogger) Debugf(string, ...interface{}) {}
