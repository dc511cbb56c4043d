// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store persists counter-examples so that they can be replayed
// after the process that found them has exited.
//
// Two backends share the [Store] interface: an append-only log that keeps
// every record, and a keyed database that keeps one record per subject,
// seed and iteration.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"code.hybscloud.com/lincheck"
)

// Record is a stored counter-example.
type Record struct {
	// Subject names the object under test, e.g. a bundled queue kind.
	Subject string `json:"subject"`

	// Capacity and MaxValue are the subject capacity and the largest
	// generated argument the scenario ran with. Replays must use the same.
	Capacity int `json:"capacity,omitempty"`
	MaxValue int `json:"maxValue,omitempty"`

	Kind      string `json:"kind"`
	Seed      uint64 `json:"seed"`
	Iteration int    `json:"iteration"`
	Minimized bool   `json:"minimized"`

	Scenario lincheck.ScenarioRef `json:"scenario"`

	// Report is the rendered counter-example at the time it was found.
	Report string `json:"report"`

	Found time.Time `json:"found"`
}

// NewRecord builds a record from a failure of a scenario expressed with reg.
func NewRecord[C any, S lincheck.Sequential[S]](subject string, reg *lincheck.Registry[C, S], f *lincheck.Failure) *Record {
	return &Record{
		Subject:   subject,
		Kind:      f.Kind.String(),
		Seed:      f.Seed,
		Iteration: f.Iteration,
		Minimized: f.Minimized,
		Scenario:  reg.Ref(f.Scenario),
		Report:    lincheck.Report(f),
		Found:     time.Now().UTC(),
	}
}

// Key identifies the record in the keyed backend.
func (r *Record) Key() []byte {
	return []byte(fmt.Sprintf("%s%s.%d.%d", keyPrefix, r.Subject, r.Seed, r.Iteration))
}

const keyPrefix = "cex-"

func (r *Record) marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.WithMessage(err, "could not marshal record")
	}
	return data, nil
}

func unmarshalRecord(data []byte) (*Record, error) {
	r := &Record{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, errors.WithMessage(err, "error decoding record, is the store corrupt?")
	}
	return r, nil
}

// Store is a counter-example store.
type Store interface {
	// Put persists r.
	Put(r *Record) error

	// Each calls fn for every stored record, in storage order, and stops at
	// the first error fn returns.
	Each(fn func(r *Record) error) error

	Close() error
}

// Backend names.
const (
	BackendWAL    = "wal"
	BackendBadger = "badger"
)

// Open opens the store of the given backend at path. The badger backend
// keeps everything in memory when path is empty.
func Open(backend, path string, logger zerolog.Logger) (Store, error) {
	switch backend {
	case BackendWAL:
		if path == "" {
			return nil, errors.New("wal store requires a path")
		}
		return OpenWAL(path)
	case BackendBadger:
		return OpenDB(path, logger)
	default:
		return nil, errors.Errorf("unknown store backend %q", backend)
	}
}
