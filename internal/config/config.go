// Package config loads the monitor daemon configuration.
package config

import (
	"time"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/DeterminateSystems/circq/internal/monitor"
)

type Config struct {
	Listen           string        `config:"listen"`
	HistorySize      int           `config:"history_size" validate:"min=0"`
	SubscriberBuffer int           `config:"subscriber_buffer" validate:"min=1"`
	Heartbeat        time.Duration `config:"heartbeat" validate:"min=1s"`
	Retry            time.Duration `config:"retry" validate:"min=1ms"`
	// MaxTasks bounds how many tasks clients may create; 0 means no bound.
	MaxTasks int `config:"max_tasks" validate:"min=0"`
	// Tasks are registered at startup so they show up before their first event.
	Tasks []string `config:"tasks"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:           "localhost:8585",
		HistorySize:      monitor.DefaultHistorySize,
		SubscriberBuffer: 8,
		Heartbeat:        15 * time.Second,
		Retry:            3 * time.Second,
		MaxTasks:         256,
	}
}

// Validate is called by ucfg after unpacking.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Listen == "" {
		result = multierror.Append(result, errors.New("listen must not be empty"))
	}
	if c.MaxTasks > 0 && len(c.Tasks) > c.MaxTasks {
		result = multierror.Append(result, errors.Errorf("%d tasks configured, max_tasks is %d", len(c.Tasks), c.MaxTasks))
	}
	seen := make(map[string]struct{}, len(c.Tasks))
	for _, name := range c.Tasks {
		if name == "" {
			result = multierror.Append(result, errors.New("task names must not be empty"))
			continue
		}
		if len(name) > monitor.MaxNameLen {
			result = multierror.Append(result, errors.Errorf("task name %.16q... is longer than %d bytes", name, monitor.MaxNameLen))
		}
		if _, ok := seen[name]; ok {
			result = multierror.Append(result, errors.Errorf("duplicate task %q", name))
		}
		seen[name] = struct{}{}
	}
	return result.ErrorOrNil()
}

// Load reads the YAML file at path on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := yaml.NewConfigWithFile(path, ucfg.PathSep("."))
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	return unpack(raw, cfg)
}

// FromMap is like Load but reads settings from an in-memory map.
func FromMap(m map[string]interface{}) (Config, error) {
	raw, err := ucfg.NewFrom(m, ucfg.PathSep("."))
	if err != nil {
		return Default(), errors.Wrap(err, "parsing config")
	}
	return unpack(raw, Default())
}

func unpack(raw *ucfg.Config, cfg Config) (Config, error) {
	if err := raw.Unpack(&cfg, ucfg.PathSep(".")); err != nil {
		return cfg, errors.Wrap(err, "unpacking config")
	}
	return cfg, nil
}
