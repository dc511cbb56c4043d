// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"code.hybscloud.com/lincheck"
	"code.hybscloud.com/lincheck/internal/store"
)

func record(subject string, seed uint64, iteration int) *store.Record {
	return &store.Record{
		Subject:   subject,
		Kind:      "violation",
		Seed:      seed,
		Iteration: iteration,
		Scenario: lincheck.ScenarioRef{
			Parallel: [][]lincheck.ActorRef{
				{{Op: "push", Variant: "Enqueue", Seed: 7}},
				{{Op: "pop", Variant: "Dequeue", Seed: 8}},
			},
		},
		Report: "= Invalid execution results =\n",
	}
}

func collect(s store.Store) []*store.Record {
	var out []*store.Record
	Expect(s.Each(func(r *store.Record) error {
		out = append(out, r)
		return nil
	})).To(Succeed())
	return out
}

var _ = Describe("WAL", func() {
	var (
		tmpDir string
		w      *store.WAL
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "store-wal-test-*")
		Expect(err).NotTo(HaveOccurred())

		w, err = store.OpenWAL(filepath.Join(tmpDir, "wal"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if w != nil {
			w.Close()
		}
		os.RemoveAll(tmpDir)
	})

	It("starts empty", func() {
		Expect(collect(w)).To(BeEmpty())
		n, err := w.Len()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(0))
	})

	It("keeps every record in append order", func() {
		Expect(w.Put(record("ms", 1, 0))).To(Succeed())
		Expect(w.Put(record("ms", 1, 0))).To(Succeed())
		Expect(w.Put(record("racy", 2, 3))).To(Succeed())

		recs := collect(w)
		Expect(recs).To(HaveLen(3))
		Expect(recs[0].Subject).To(Equal("ms"))
		Expect(recs[2].Subject).To(Equal("racy"))
		Expect(recs[2].Iteration).To(Equal(3))
		Expect(recs[2].Scenario.Parallel).To(HaveLen(2))
		Expect(recs[2].Scenario.Parallel[1][0].Op).To(Equal("pop"))
	})

	It("survives reopening", func() {
		Expect(w.Put(record("spsc", 9, 1))).To(Succeed())
		Expect(w.Close()).To(Succeed())

		var err error
		w, err = store.OpenWAL(filepath.Join(tmpDir, "wal"))
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Put(record("spsc", 10, 1))).To(Succeed())

		recs := collect(w)
		Expect(recs).To(HaveLen(2))
		Expect(recs[0].Seed).To(Equal(uint64(9)))
		Expect(recs[1].Seed).To(Equal(uint64(10)))
	})

	It("stops at the first callback error", func() {
		Expect(w.Put(record("ms", 1, 0))).To(Succeed())
		Expect(w.Put(record("ms", 2, 0))).To(Succeed())

		stop := errors.New("stop")
		calls := 0
		err := w.Each(func(*store.Record) error {
			calls++
			return stop
		})
		Expect(err).To(Equal(stop))
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("DB", func() {
	var db *store.DB

	BeforeEach(func() {
		var err error
		db, err = store.OpenDB("", zerolog.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
	})

	It("replaces records with the same key", func() {
		first := record("racy", 5, 2)
		first.Report = "first"
		second := record("racy", 5, 2)
		second.Report = "second"

		Expect(db.Put(first)).To(Succeed())
		Expect(db.Put(second)).To(Succeed())
		Expect(db.Put(record("racy", 6, 2))).To(Succeed())

		recs := collect(db)
		Expect(recs).To(HaveLen(2))

		got, err := db.Get("racy", 5, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).NotTo(BeNil())
		Expect(got.Report).To(Equal("second"))
	})

	It("returns nil for a missing record", func() {
		got, err := db.Get("ms", 1, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})

var _ = Describe("Open", func() {
	It("rejects unknown backends", func() {
		_, err := store.Open("tape", "", zerolog.Nop())
		Expect(err).To(MatchError(`unknown store backend "tape"`))
	})

	It("requires a path for the WAL backend", func() {
		_, err := store.Open(store.BackendWAL, "", zerolog.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("opens an in-memory badger store", func() {
		s, err := store.Open(store.BackendBadger, "", zerolog.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Put(record("ms", 1, 0))).To(Succeed())
		Expect(collect(s)).To(HaveLen(1))
		Expect(s.Close()).To(Succeed())
	})
})
