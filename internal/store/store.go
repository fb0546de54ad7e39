// Package store persists engine runs in badger with a ristretto read cache
// in front of it.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/ristretto"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

const (
	runPrefix   = "run/"
	indexPrefix = "idx/"
)

// Store is safe for concurrent use.
type Store struct {
	db     *badger.DB
	cache  *ristretto.Cache
	logger *slog.Logger
}

// Open opens the database at path, or an in-memory one when path is empty.
// cacheMaxMiB bounds the read cache; 0 disables it.
func Open(path string, cacheMaxMiB int64, logger *slog.Logger) (*Store, error) {
	logger = logger.With("component", "store")

	opts := badger.DefaultOptions(path).WithTruncate(true)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if cacheMaxMiB > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e4,
			MaxCost:     cacheMaxMiB << 20,
			BufferItems: 64,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating run cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Close releases the cache and the database.
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return s.db.Close()
}

// Save writes a record and its index entry in one transaction.
func (s *Store) Save(rec Record) error {
	if rec.ID == "" {
		return errors.New("record has no ID")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", rec.ID, err)
	}
	summary, err := json.Marshal(rec.Summary())
	if err != nil {
		return fmt.Errorf("encoding run summary %s: %w", rec.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(rec.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(rec), summary)
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}

	if s.cache != nil {
		s.cache.Set(rec.ID, rec, int64(len(data)))
	}
	s.logger.Debug("run saved", "run_id", rec.ID, "bytes", len(data))
	return nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (Record, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(id); ok {
			return v.(Record), nil
		}
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading run %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding run %s: %w", id, err)
	}
	if s.cache != nil {
		s.cache.Set(id, rec, int64(len(data)))
	}
	return rec, nil
}

// List returns up to limit summaries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Summary, error) {
	out := []Summary{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(indexPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append([]byte(indexPrefix), 0xFF)); it.Valid(); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var sum Summary
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &sum)
			})
			if err != nil {
				return fmt.Errorf("decoding index %s: %w", it.Item().Key(), err)
			}
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return out, nil
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// indexKey sorts by creation time; the fixed-width timestamp keeps byte
// order equal to time order.
func indexKey(rec Record) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", indexPrefix, rec.CreatedAt.UnixNano(), rec.ID))
}

// badgerLogger routes badger's internal logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
