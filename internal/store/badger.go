// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DB is a keyed record store. A record replaces any earlier record with the
// same subject, seed and iteration.
type DB struct {
	db *badger.DB
}

// OpenDB opens or creates the database in directory path, or an in-memory
// database if path is empty. Badger's own messages go to logger.
func OpenDB(path string, logger zerolog.Logger) (*DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path).WithSyncWrites(false).WithTruncate(true)
	}
	opts = opts.WithLogger(badgerLogger{logger.With().Str("component", "badger").Logger()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open backing db")
	}
	return &DB{db: db}, nil
}

// Put stores r under its key.
func (s *DB) Put(r *Record) error {
	data, err := r.marshal()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.Key(), data)
	})
}

// Get returns the record with the given key fields, or nil if none is
// stored.
func (s *DB) Get(subject string, seed uint64, iteration int) (*Record, error) {
	key := (&Record{Subject: subject, Seed: seed, Iteration: iteration}).Key()
	var valCopy []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return unmarshalRecord(valCopy)
}

// Each iterates the records in key order.
func (s *DB) Each(fn func(r *Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			r, err := unmarshalRecord(data)
			if err != nil {
				return err
			}
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// badgerLogger forwards badger's messages to zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msg(trim(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msg(trim(format, args))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msg(trim(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msg(trim(format, args))
}

func trim(format string, args []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
