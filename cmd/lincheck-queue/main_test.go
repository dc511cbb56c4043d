// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"code.hybscloud.com/lincheck"
	"code.hybscloud.com/lincheck/internal/store"
	"code.hybscloud.com/lincheck/queue"
)

var _ = Describe("Parsing", func() {
	It("parses a fully populated command line", func() {
		args, err := parseArgs([]string{
			"--logLevel", "debug",
			"--noColor",
			"--store", "badger",
			"run",
			"--queue", "spsc",
			"--capacity", "8",
			"--maxValue", "3",
			"--threads", "2",
			"--actors", "4",
			"--before", "1",
			"--after", "0",
			"--iterations", "7",
			"--invocations", "11",
			"--seed", "42",
			"--noMinimize",
			"--timeout", "2s",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(args.command).To(Equal("run"))
		Expect(args.noColor).To(BeTrue())
		Expect(args.cfg.LogLevel).To(Equal("debug"))
		Expect(args.cfg.Store).To(Equal("badger"))
		Expect(args.cfg.Queue).To(Equal("spsc"))
		Expect(args.cfg.Capacity).To(Equal(8))
		Expect(args.cfg.MaxValue).To(Equal(3))
		Expect(args.cfg.ActorsPerThread).To(Equal(4))
		Expect(args.cfg.ActorsBefore).To(Equal(1))
		Expect(args.cfg.Iterations).To(Equal(7))
		Expect(args.cfg.Invocations).To(Equal(11))
		Expect(args.cfg.Seed).To(Equal(uint64(42)))
		Expect(args.cfg.minimize()).To(BeFalse())
		Expect(args.cfg.Timeout).To(Equal(2 * time.Second))
	})

	It("falls back to defaults", func() {
		args, err := parseArgs([]string{"run"})
		Expect(err).NotTo(HaveOccurred())
		Expect(args.cfg.Queue).To(Equal("ms"))
		Expect(args.cfg.minimize()).To(BeTrue())
	})

	It("layers flags over the config file", func() {
		dir, err := os.MkdirTemp("", "lincheck-queue-config-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte("queue: racy\ncapacity: 16\niterations: 3\nminimize: false\ntimeout: 1500ms\n"), 0o600)).To(Succeed())

		args, err := parseArgs([]string{"--config", path, "run", "--iterations", "5"})
		Expect(err).NotTo(HaveOccurred())
		Expect(args.cfg.Queue).To(Equal("racy"))
		Expect(args.cfg.Capacity).To(Equal(16))
		Expect(args.cfg.Iterations).To(Equal(5))
		Expect(args.cfg.minimize()).To(BeFalse())
		Expect(args.cfg.Timeout).To(Equal(1500 * time.Millisecond))
	})

	When("replaying without a store", func() {
		It("returns an error", func() {
			_, err := parseArgs([]string{"replay"})
			Expect(err).To(MatchError("replay requires --store"))
		})
	})

	When("the capacity is too small", func() {
		It("returns an error", func() {
			_, err := parseArgs([]string{"run", "--capacity", "1"})
			Expect(err).To(MatchError("capacity must be >= 2, got 1"))
		})
	})

	It("rejects unknown queues", func() {
		_, err := parseArgs([]string{"run", "--queue", "lifo"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Execution", func() {
	var (
		output *bytes.Buffer
		tmpDir string
	)

	BeforeEach(func() {
		output = &bytes.Buffer{}
		var err error
		tmpDir, err = os.MkdirTemp("", "lincheck-queue-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	parse := func(args ...string) *arguments {
		a, err := parseArgs(append([]string{"--noColor", "--logLevel", "error"}, args...))
		Expect(err).NotTo(HaveOccurred())
		a.logOutput = io.Discard
		return a
	}

	It("lists the bundled queues", func() {
		Expect(parse("list").execute(context.Background(), output)).To(Succeed())
		for _, k := range queue.Kinds() {
			Expect(output.String()).To(ContainSubstring(k.Name))
		}
		Expect(output.String()).To(ContainSubstring("racy (not linearizable)"))
	})

	It("passes the Michael-Scott queue", func() {
		a := parse("run", "--queue", "ms", "--iterations", "3", "--invocations", "20", "--seed", "1")
		Expect(a.execute(context.Background(), output)).To(Succeed())
		Expect(output.String()).To(HavePrefix("PASS ms"))
	})

	It("stores and replays a counter-example of the racy queue", func() {
		if queue.RaceEnabled {
			Skip("racy queue races by construction")
		}
		walPath := filepath.Join(tmpDir, "wal")
		a := parse("--store", "wal", "--storePath", walPath,
			"run", "--queue", "racy", "--capacity", "8", "--maxValue", "5",
			"--actors", "4", "--before", "0", "--after", "4",
			"--iterations", "50", "--invocations", "300", "--seed", "3", "--noMinimize")
		err := a.execute(context.Background(), output)
		Expect(err).To(Equal(errCounterExample))
		Expect(output.String()).To(HavePrefix("FAIL racy"))

		w, err := store.OpenWAL(walPath)
		Expect(err).NotTo(HaveOccurred())
		var recs []*store.Record
		Expect(w.Each(func(r *store.Record) error {
			recs = append(recs, r)
			return nil
		})).To(Succeed())
		Expect(w.Close()).To(Succeed())
		Expect(recs).To(HaveLen(1))
		rec := recs[0]
		Expect(rec.Capacity).To(Equal(8))
		Expect(rec.MaxValue).To(Equal(5))

		// The stored actors regenerate the same arguments under the stored
		// value range.
		kind, _ := queue.LookupKind("racy")
		reg, err := kind.Registry(lincheck.IntGen{Min: 1, Max: rec.MaxValue})
		Expect(err).NotTo(HaveOccurred())
		scenario, err := reg.Resolve(rec.Scenario)
		Expect(err).NotTo(HaveOccurred())
		Expect(reg.Ref(scenario)).To(Equal(rec.Scenario))

		// Replay runs with the default capacity and value range on the
		// command line; the record's parameters take precedence.
		output.Reset()
		r := parse("--store", "wal", "--storePath", walPath, "replay", "--queue", "racy", "--invocations", "3000")
		Expect(r.cfg.Capacity).NotTo(Equal(8))
		Expect(r.execute(context.Background(), output)).To(Succeed())
		Expect(output.String()).To(HavePrefix("REPRODUCED racy seed 3"))
		Expect(output.String()).NotTo(ContainSubstring("NOT REPRODUCED"))
	})

	It("replays with the parameters of the record", func() {
		cfg := defaultConfig()
		rec := &store.Record{
			Capacity: 16,
			MaxValue: 2,
			Scenario: lincheck.ScenarioRef{Parallel: make([][]lincheck.ActorRef, 3)},
		}
		got := replayConfig(cfg, rec)
		Expect(got.Capacity).To(Equal(16))
		Expect(got.MaxValue).To(Equal(2))
		Expect(got.Threads).To(Equal(3))
		Expect(got.Iterations).To(Equal(cfg.Iterations))
	})
})
