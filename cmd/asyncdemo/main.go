package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Swind/go-async-demo/cmd/asyncdemo/commands"
	"github.com/Swind/go-async-demo/core"
	asynclogrus "github.com/Swind/go-async-demo/observability/logrus"
	"github.com/Swind/go-async-demo/observability/prometheus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("asyncdemo", "Blocking versus deferred execution demonstrations.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	allCmd := commands.NewAllCommand(rootCmd, app)
	blockingCmd := commands.NewBlockingCommand(rootCmd, app)
	deferredCmd := commands.NewDeferredCommand(rootCmd, app)
	compareCmd := commands.NewCompareCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		allCmd.Name():      allCmd,
		blockingCmd.Name(): blockingCmd,
		deferredCmd.Name(): deferredCmd,
		compareCmd.Name():  compareCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Set logger.
	rootCmd.Logger = getLogger(*rootCmd)
	rootCmd.Metrics = &core.NilMetrics{}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debug("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Metrics.
	if rootCmd.MetricsListenAddress != "" {
		reg := prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		exporter, err := prometheus.NewMetricsExporter("", reg, prometheus.ExporterOptions{})
		if err != nil {
			return fmt.Errorf("could not create metrics exporter: %w", err)
		}
		poller, err := prometheus.NewSnapshotPoller(reg, time.Second)
		if err != nil {
			return fmt.Errorf("could not create snapshot poller: %w", err)
		}
		rootCmd.Metrics = exporter
		rootCmd.Poller = poller

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{
			Addr:              rootCmd.MetricsListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Add(
			func() error {
				poller.Start(ctx)
				rootCmd.Logger.Info("Serving metrics", core.F("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server failed: %w", err)
				}
				return nil
			},
			func(_ error) {
				poller.Stop()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(config commands.RootCommand) core.Logger {
	if config.NoLog {
		return core.NewNoOpLogger()
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := asynclogrus.NewLogger(logrusLogEntry).WithFields(core.F("version", Version))

	logger.Debug("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
