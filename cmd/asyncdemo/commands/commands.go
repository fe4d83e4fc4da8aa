package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/Swind/go-async-demo/core"
	"github.com/Swind/go-async-demo/internal/config"
	"github.com/Swind/go-async-demo/internal/demo"
	"github.com/Swind/go-async-demo/observability/prometheus"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug                bool
	NoLog                bool
	NoColor              bool
	LoggerType           string
	ConfigPath           string
	TimeScale            float64
	MetricsListenAddress string

	// Global instances.
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  core.Logger
	Metrics core.Metrics
	Poller  *prometheus.SnapshotPoller
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to a YAML file with the demo tasks and stages.").StringVar(&c.ConfigPath)
	app.Flag("time-scale", "Divides every duration by this factor (0 uses the config value, or 1).").Default("0").Float64Var(&c.TimeScale)
	app.Flag("metrics-listen-address", "Address to serve Prometheus metrics on (empty disables).").StringVar(&c.MetricsListenAddress)

	return c
}

// loadDemo returns the demo content from the config file, or the defaults.
func (c *RootCommand) loadDemo(ctx context.Context) (config.Demo, error) {
	d := config.Default()
	if c.ConfigPath != "" {
		path, err := filepath.Abs(c.ConfigPath)
		if err != nil {
			return config.Demo{}, fmt.Errorf("could not resolve config path: %w", err)
		}

		repo := config.NewDemoYAMLRepository(os.DirFS(filepath.Dir(path)))
		d, err = repo.GetDemo(ctx, filepath.Base(path))
		if err != nil {
			return config.Demo{}, fmt.Errorf("could not load config: %w", err)
		}
	}

	if c.TimeScale < 0 {
		return config.Demo{}, fmt.Errorf("time scale must not be negative")
	}
	if c.TimeScale > 0 {
		d.TimeScale = c.TimeScale
	}

	return d, nil
}

// newDemoService builds the demo service and the scheduler it runs on. The
// returned stop func must be called once the command is done.
func (c *RootCommand) newDemoService(ctx context.Context) (*demo.Service, func(), error) {
	d, err := c.loadDemo(ctx)
	if err != nil {
		return nil, nil, err
	}

	scheduler := core.NewScheduler(core.SchedulerConfig{
		Name:         "demo",
		Logger:       c.Logger,
		Metrics:      c.Metrics,
		ErrorHandler: &core.WriterCallbackErrorHandler{Out: c.Stderr},
	})
	if c.Poller != nil {
		c.Poller.AddScheduler(scheduler.Name(), scheduler)
		c.Poller.AddLoop(scheduler.Loop().Name(), scheduler.Loop())
	}

	svc, err := demo.NewService(demo.ServiceConfig{
		Demo:      d,
		Sink:      core.NewWriterSink(c.Stdout),
		Scheduler: scheduler,
		Logger:    c.Logger,
		Metrics:   c.Metrics,
	})
	if err != nil {
		scheduler.Stop()
		return nil, nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, scheduler.Stop, nil
}
