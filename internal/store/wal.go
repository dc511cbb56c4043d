// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/wal"
)

// WAL is an append-only record log. Every Put adds an entry; nothing is
// overwritten.
type WAL struct {
	mutex sync.Mutex
	log   *wal.Log

	// Index of the last entry. The underlying log counts from 1.
	last uint64
}

// OpenWAL opens or creates the log in directory path.
func OpenWAL(path string) (*WAL, error) {
	log, err := wal.Open(path, &wal.Options{NoCopy: true})
	if err != nil {
		return nil, errors.WithMessage(err, "could not open WAL")
	}
	last, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, errors.WithMessage(err, "could not read last index")
	}
	return &WAL{log: log, last: last}, nil
}

// Put appends r.
func (w *WAL) Put(r *Record) error {
	data, err := r.marshal()
	if err != nil {
		return err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if err := w.log.Write(w.last+1, data); err != nil {
		return errors.WithMessagef(err, "could not write index %d", w.last+1)
	}
	w.last++
	return nil
}

// Each reads every record from the first to the last.
func (w *WAL) Each(fn func(r *Record) error) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	first, err := w.log.FirstIndex()
	if err != nil {
		return errors.WithMessage(err, "could not read first index")
	}
	if first == 0 {
		return nil
	}
	for i := first; i <= w.last; i++ {
		data, err := w.log.Read(i)
		if err != nil {
			return errors.WithMessagef(err, "could not read index %d", i)
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
}

// Len returns the number of stored records.
func (w *WAL) Len() (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	first, err := w.log.FirstIndex()
	if err != nil {
		return 0, errors.WithMessage(err, "could not read first index")
	}
	if first == 0 {
		return 0, nil
	}
	return int(w.last - first + 1), nil
}

// Close syncs and closes the log.
func (w *WAL) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if err := w.log.Sync(); err != nil {
		return errors.WithMessage(err, "could not sync WAL")
	}
	return w.log.Close()
}
