// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// lincheck-queue checks the bundled queues for linearizability.
//
// The run command generates randomized scenarios against one queue and
// prints a counter-example if one is found, optionally persisting it. The
// replay command re-executes persisted counter-examples. The list command
// prints the bundled queues.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/alecthomas/kingpin.v2"

	"code.hybscloud.com/lincheck"
	"code.hybscloud.com/lincheck/internal/store"
	"code.hybscloud.com/lincheck/queue"
)

// errCounterExample is returned by execute when a run found a failure.
var errCounterExample = errors.New("counter-example found")

type arguments struct {
	command     string
	cfg         config
	replayQueue string
	noColor     bool
	logOutput   io.Writer
}

func kindNames() []string {
	var names []string
	for _, k := range queue.Kinds() {
		names = append(names, k.Name)
	}
	return names
}

func parseArgs(args []string) (*arguments, error) {
	app := kingpin.New("lincheck-queue", "Checks the bundled lock-free queues for linearizability.")
	configFile := app.Flag("config", "YAML file with default settings.").ExistingFile()
	logLevel := app.Flag("logLevel", "Log level.").Enum("trace", "debug", "info", "warn", "error")
	noColor := app.Flag("noColor", "Disable coloured output.").Default("false").Bool()
	storeKind := app.Flag("store", "Counter-example store backend.").Enum(store.BackendWAL, store.BackendBadger)
	storePath := app.Flag("storePath", "Directory of the counter-example store.").String()

	run := app.Command("run", "Run randomized scenarios against a queue.")
	queueName := run.Flag("queue", "Queue to check.").Enum(kindNames()...)
	capacity := run.Flag("capacity", "Queue capacity (rounded up to a power of 2; ignored by unbounded queues).").Int()
	maxValue := run.Flag("maxValue", "Largest value pushed.").Int()
	threads := run.Flag("threads", "Parallel threads.").Int()
	actors := run.Flag("actors", "Operations per parallel thread.").Int()
	before := run.Flag("before", "Operations of the sequential init part.").Int()
	after := run.Flag("after", "Operations of the sequential post part.").Int()
	iterations := run.Flag("iterations", "Scenarios to generate.").Int()
	invocations := run.Flag("invocations", "Executions per scenario.").Int()
	seed := run.Flag("seed", "Base seed (random if unset).").Uint64()
	noMinimize := run.Flag("noMinimize", "Report counter-examples without shrinking them.").Default("false").Bool()
	timeout := run.Flag("timeout", "Timeout of one execution.").Duration()

	replay := app.Command("replay", "Re-execute stored counter-examples.")
	replayQueue := replay.Flag("queue", "Only replay counter-examples of this queue.").String()
	replayInvocations := replay.Flag("invocations", "Executions per stored scenario.").Int()

	app.Command("list", "List the bundled queues.")

	command, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return nil, err
	}
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setString(&cfg.LogLevel, *logLevel)
	setString(&cfg.Store, *storeKind)
	setString(&cfg.StorePath, *storePath)
	setString(&cfg.Queue, *queueName)
	setInt(&cfg.Capacity, *capacity)
	setInt(&cfg.MaxValue, *maxValue)
	setInt(&cfg.Threads, *threads)
	setInt(&cfg.ActorsPerThread, *actors)
	setInt(&cfg.ActorsBefore, *before)
	setInt(&cfg.ActorsAfter, *after)
	setInt(&cfg.Iterations, *iterations)
	setInt(&cfg.Invocations, *invocations)
	setInt(&cfg.Invocations, *replayInvocations)
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *noMinimize {
		off := false
		cfg.Minimize = &off
	}
	if *timeout != 0 {
		cfg.Timeout = *timeout
	}

	switch {
	case command == replay.FullCommand() && cfg.Store == "":
		return nil, errors.Errorf("replay requires --store")
	case command == run.FullCommand() && cfg.Store == store.BackendWAL && cfg.StorePath == "":
		return nil, errors.Errorf("the wal store requires --storePath")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &arguments{
		command:     command,
		cfg:         cfg,
		replayQueue: *replayQueue,
		noColor:     *noColor,
		logOutput:   os.Stderr,
	}, nil
}

func (a *arguments) logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), errors.WithMessage(err, "bad log level")
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: a.logOutput, NoColor: a.noColor, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().
		Logger(), nil
}

func (a *arguments) execute(ctx context.Context, output io.Writer) error {
	log, err := a.logger()
	if err != nil {
		return err
	}
	p := palette{enabled: !a.noColor}

	switch a.command {
	case "list":
		for _, k := range queue.Kinds() {
			note := ""
			if k.Broken {
				note = " (not linearizable)"
			}
			fmt.Fprintf(output, "%s%s\n", p.info(k.Name), note)
		}
		return nil
	case "run":
		return a.run(ctx, output, log, p)
	case "replay":
		return a.replay(ctx, output, log, p)
	default:
		return errors.Errorf("unknown command %q", a.command)
	}
}

func newTester(kind queue.Kind, cfg config, log zerolog.Logger) (*lincheck.Tester[*queue.Subject[int], *queue.Ring[int]], error) {
	reg, err := kind.Registry(lincheck.IntGen{Min: 1, Max: cfg.MaxValue})
	if err != nil {
		return nil, err
	}
	newObject, newModel := kind.Factories(cfg.Capacity)
	return lincheck.Build(cfg.builder().Logger(log), reg, newObject, newModel)
}

// replayConfig is cfg with the subject parameters and thread count of rec.
func replayConfig(cfg config, rec *store.Record) config {
	if rec.Capacity > 0 {
		cfg.Capacity = rec.Capacity
	}
	if rec.MaxValue > 0 {
		cfg.MaxValue = rec.MaxValue
	}
	if n := len(rec.Scenario.Parallel); n > 0 {
		cfg.Threads = n
	}
	return cfg
}

func (a *arguments) run(ctx context.Context, output io.Writer, log zerolog.Logger, p palette) error {
	kind, ok := queue.LookupKind(a.cfg.Queue)
	if !ok {
		return errors.Errorf("unknown queue %q", a.cfg.Queue)
	}
	tester, err := newTester(kind, a.cfg, log)
	if err != nil {
		return err
	}
	log.Info().Str("queue", kind.Name).Uint64("seed", tester.Seed()).Int("iterations", a.cfg.Iterations).Msg("checking")

	start := time.Now()
	f, err := tester.Run(ctx)
	if err != nil {
		return err
	}
	if f == nil {
		fmt.Fprintf(output, "%s %s: %d iterations in %v, seed %d\n",
			p.pass("PASS"), kind.Name, a.cfg.Iterations, time.Since(start).Round(time.Millisecond), tester.Seed())
		return nil
	}

	fmt.Fprintf(output, "%s %s: %s\n", p.fail("FAIL"), kind.Name, f.Kind)
	fmt.Fprint(output, p.report(lincheck.Report(f)))
	if a.cfg.Store != "" {
		rec := store.NewRecord(kind.Name, tester.Registry(), f)
		rec.Capacity = a.cfg.Capacity
		rec.MaxValue = a.cfg.MaxValue
		if err := a.persist(rec, log); err != nil {
			return err
		}
	}
	return errCounterExample
}

func (a *arguments) persist(rec *store.Record, log zerolog.Logger) error {
	s, err := store.Open(a.cfg.Store, a.cfg.StorePath, log)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Put(rec); err != nil {
		return errors.WithMessage(err, "could not store counter-example")
	}
	log.Info().Str("store", a.cfg.Store).Str("path", a.cfg.StorePath).Msg("counter-example stored")
	return nil
}

func (a *arguments) replay(ctx context.Context, output io.Writer, log zerolog.Logger, p palette) error {
	s, err := store.Open(a.cfg.Store, a.cfg.StorePath, log)
	if err != nil {
		return err
	}
	defer s.Close()

	replayed := 0
	err = s.Each(func(rec *store.Record) error {
		if a.replayQueue != "" && rec.Subject != a.replayQueue {
			return nil
		}
		kind, ok := queue.LookupKind(rec.Subject)
		if !ok {
			log.Warn().Str("queue", rec.Subject).Msg("skipping counter-example of unknown queue")
			return nil
		}
		tester, err := newTester(kind, replayConfig(a.cfg, rec), log)
		if err != nil {
			return err
		}
		scenario, err := tester.Registry().Resolve(rec.Scenario)
		if err != nil {
			return errors.WithMessagef(err, "could not resolve counter-example of %s, seed %d", rec.Subject, rec.Seed)
		}
		f, err := tester.RunScenario(ctx, scenario)
		if err != nil {
			return err
		}
		replayed++
		label := fmt.Sprintf("%s seed %d iteration %d", rec.Subject, rec.Seed, rec.Iteration)
		if f == nil {
			fmt.Fprintf(output, "%s %s\n", p.pass("NOT REPRODUCED"), label)
			return nil
		}
		fmt.Fprintf(output, "%s %s: %s\n", p.fail("REPRODUCED"), label, f.Kind)
		fmt.Fprint(output, p.report(lincheck.Report(f)))
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("replayed", replayed).Msg("replay done")
	return nil
}

func main() {
	kingpin.Version("0.1.0")
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = args.execute(ctx, os.Stdout)
	if errors.Is(err, errCounterExample) {
		stop()
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("")
		kingpin.Fatalf("%s", err)
	}
}
