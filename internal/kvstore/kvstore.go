// Package kvstore wraps Badger as the durable key-addressed store backing
// the trade ledger. Values are JSON; keys are opaque strings namespaced by
// prefix at the caller.
package kvstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
)

// ErrNotFound reports a missing key. Callers map it to their own taxonomy.
var ErrNotFound = errors.New("kvstore: key not found")

// maxUpdateRetries bounds commit-conflict retries in Update.
const maxUpdateRetries = 8

type OpenOptions struct {
	Path     string
	InMemory bool // ephemeral store, used by tests
}

// Store is a thin Badger wrapper exposing single-key get/set/delete plus
// an atomic read-modify-write transaction.
type Store struct {
	db *badger.DB
}

func Open(opts OpenOptions) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("kvstore: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "kvstore: open")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get unmarshals the value stored under key into out.
func (s *Store) Get(ctx context.Context, key string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrapf(err, "kvstore: get %s", key)
	}
	return err
}

// Set writes val under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, val any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(val)
	if err != nil {
		return errors.Wrapf(err, "kvstore: marshal %s", key)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), b)
	})
	return errors.Wrapf(err, "kvstore: set %s", key)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrapf(err, "kvstore: delete %s", key)
}

// Txn is the handle passed to Update callbacks. Reads and writes through it
// belong to one Badger transaction: they commit together or not at all.
type Txn struct {
	txn *badger.Txn
}

func (t *Txn) Get(key string, out any) error {
	item, err := t.txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func (t *Txn) Set(key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return t.txn.Set([]byte(key), b)
}

func (t *Txn) Delete(key string) error {
	return t.txn.Delete([]byte(key))
}

// Update runs fn inside a serializable transaction. Concurrent writers that
// touched the same keys make the commit fail with ErrConflict; those commits
// are retried with jittered backoff up to maxUpdateRetries. Errors returned
// by fn itself are never retried.
func (s *Store) Update(ctx context.Context, fn func(txn *Txn) error) error {
	bo := &backoff.Backoff{
		Min:    5 * time.Millisecond,
		Max:    250 * time.Millisecond,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(btxn *badger.Txn) error {
			return fn(&Txn{txn: btxn})
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.Duration()):
		}
	}
	return errors.Wrap(lastErr, "kvstore: update retries exhausted")
}

// ScanPrefix visits every key with the given prefix. The callback receives
// the key and the raw JSON value; returning an error aborts the scan.
func (s *Store) ScanPrefix(ctx context.Context, prefix string, fn func(key string, val []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				cp := append([]byte(nil), val...)
				return fn(key, cp)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrapf(err, "kvstore: scan %s", prefix)
}
