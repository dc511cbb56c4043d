// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"code.hybscloud.com/lincheck"
	"code.hybscloud.com/lincheck/internal/store"
)

// config holds the settings of a check. Values come from the YAML file
// named by --config, overridden by any flag given on the command line.
type config struct {
	Queue    string `yaml:"queue"`
	Capacity int    `yaml:"capacity"`
	MaxValue int    `yaml:"maxValue"` // push arguments are drawn from [1, MaxValue]

	Threads         int `yaml:"threads"`
	ActorsPerThread int `yaml:"actorsPerThread"`
	ActorsBefore    int `yaml:"actorsBefore"`
	ActorsAfter     int `yaml:"actorsAfter"`

	Iterations  int    `yaml:"iterations"`
	Invocations int    `yaml:"invocations"`
	Seed        uint64 `yaml:"seed"`

	Minimize       *bool `yaml:"minimize"`
	MinimizeEffort int   `yaml:"minimizeEffort"`

	Timeout      time.Duration `yaml:"timeout"`
	CheckTimeout time.Duration `yaml:"checkTimeout"`

	Store     string `yaml:"store"`     // "wal" or "badger"; empty disables persistence
	StorePath string `yaml:"storePath"` // directory of the store

	LogLevel string `yaml:"logLevel"`
}

func defaultConfig() config {
	return config{
		Queue:           "ms",
		Capacity:        4,
		MaxValue:        9,
		Threads:         lincheck.DefaultThreads,
		ActorsPerThread: 3,
		ActorsBefore:    2,
		ActorsAfter:     2,
		Iterations:      20,
		Invocations:     200,
		MinimizeEffort:  lincheck.DefaultMinimizeEffort,
		Timeout:         5 * time.Second,
		CheckTimeout:    lincheck.DefaultCheckTimeout,
		LogLevel:        "info",
	}
}

// loadConfig reads a YAML file over the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WithMessage(err, "could not read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WithMessagef(err, "could not parse config file %s", path)
	}
	return cfg, nil
}

func (c *config) validate() error {
	switch {
	case c.Capacity < 2:
		return errors.Errorf("capacity must be >= 2, got %d", c.Capacity)
	case c.MaxValue < 1:
		return errors.Errorf("maxValue must be >= 1, got %d", c.MaxValue)
	case c.Store != "" && c.Store != store.BackendWAL && c.Store != store.BackendBadger:
		return errors.Errorf("unknown store %q", c.Store)
	}
	return nil
}

func (c *config) minimize() bool {
	return c.Minimize == nil || *c.Minimize
}

// builder translates the config into tester options.
func (c *config) builder() *lincheck.Builder {
	b := lincheck.New().
		Threads(c.Threads).
		ActorsPerThread(c.ActorsPerThread).
		ActorsBefore(c.ActorsBefore).
		ActorsAfter(c.ActorsAfter).
		Iterations(c.Iterations).
		Invocations(c.Invocations).
		Minimize(c.minimize()).
		MinimizeEffort(c.MinimizeEffort).
		Timeout(c.Timeout).
		CheckTimeout(c.CheckTimeout)
	if c.Seed != 0 {
		b.Seed(c.Seed)
	}
	return b
}
