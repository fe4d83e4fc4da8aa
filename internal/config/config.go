// Package config loads the demonstration content from YAML files.
package config

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	asyncdemo "github.com/Swind/go-async-demo"
	"github.com/Swind/go-async-demo/core"
)

// Demo is the validated demonstration content.
type Demo struct {
	Tasks     []core.BlockingTask
	Stages    []core.Stage
	TimeScale float64
}

// DemoYAMLRepository loads demo configuration from YAML files.
type DemoYAMLRepository struct {
	fs fs.FS
}

// NewDemoYAMLRepository creates a new YAML demo config repository.
func NewDemoYAMLRepository(filesystem fs.FS) *DemoYAMLRepository {
	return &DemoYAMLRepository{fs: filesystem}
}

// GetDemo loads a demo configuration from a YAML file. Sections that are
// missing from the file fall back to the built-in defaults.
func (r *DemoYAMLRepository) GetDemo(ctx context.Context, path string) (Demo, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return Demo{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return Demo{}, ctx.Err()
	}

	var cfg DemoConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Demo{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Demo{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg.toModel(), nil
}

// Default returns the built-in demonstration content.
func Default() Demo {
	return Demo{
		Tasks:     asyncdemo.DefaultTasks(),
		Stages:    asyncdemo.DefaultStages(),
		TimeScale: 1,
	}
}

// DemoConfig represents the YAML structure for the demo configuration.
type DemoConfig struct {
	Tasks     []TaskConfig  `yaml:"tasks"`
	Stages    []StageConfig `yaml:"stages"`
	TimeScale float64       `yaml:"time_scale"`
}

// TaskConfig represents the YAML structure for a named task.
type TaskConfig struct {
	Name       string `yaml:"name"`
	DurationMS int    `yaml:"duration_ms"`
}

// StageConfig represents the YAML structure for a sequence stage.
type StageConfig struct {
	Message string `yaml:"message"`
	WaitMS  int    `yaml:"wait_ms"`
}

func (c DemoConfig) validate() error {
	if c.TimeScale < 0 {
		return fmt.Errorf("time_scale must not be negative")
	}

	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("tasks[%d]: name is required", i)
		}
		if t.DurationMS < 0 {
			return fmt.Errorf("tasks[%d]: duration_ms must not be negative", i)
		}
	}

	for i, s := range c.Stages {
		if s.Message == "" {
			return fmt.Errorf("stages[%d]: message is required", i)
		}
		if s.WaitMS < 0 {
			return fmt.Errorf("stages[%d]: wait_ms must not be negative", i)
		}
	}

	return nil
}

func (c DemoConfig) toModel() Demo {
	demo := Default()

	if len(c.Tasks) > 0 {
		demo.Tasks = make([]core.BlockingTask, 0, len(c.Tasks))
		for _, t := range c.Tasks {
			demo.Tasks = append(demo.Tasks, core.BlockingTask{
				Name:     t.Name,
				Duration: time.Duration(t.DurationMS) * time.Millisecond,
			})
		}
	}

	if len(c.Stages) > 0 {
		demo.Stages = make([]core.Stage, 0, len(c.Stages))
		for _, s := range c.Stages {
			demo.Stages = append(demo.Stages, core.Stage{
				Message: s.Message,
				Wait:    time.Duration(s.WaitMS) * time.Millisecond,
			})
		}
	}

	if c.TimeScale > 0 {
		demo.TimeScale = c.TimeScale
	}

	return demo
}
