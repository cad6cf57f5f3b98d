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

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/docstore"
	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Configuration is layered: built-in defaults, the
--config YAML file, environment (JWT_SECRET, MONGODB_URI, REDIS_ADDR,
AUTHD_*), then flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

// NewSweepCmd creates the sweep subcommand, a one-shot purge of stale login
// attempt records for use from an external scheduler.
func NewSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge stale login-attempt records once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg.Store, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			engine, err := buildEngine(&cfg, store, logger)
			if err != nil {
				return err
			}
			defer engine.Close()

			n, err := engine.SweepLoginAttempts(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("removed %d stale login-attempt records\n", n)
			return nil
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

// NewConfigCmd creates the config subcommand, which prints the effective
// configuration. Secrets are never printed.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), os.Getenv)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func newLogger(cfg logConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	return logger, nil
}

// buildEngine builds the engine for cfg. Stores that lose their data on exit
// may run without JWT_SECRET; a random secret is generated for them.
func buildEngine(cfg *serverConfig, store docstore.Store, logger logrus.FieldLogger) (*authcore.Engine, error) {
	if len(cfg.Auth.JWT.PrivateKey) == 0 && cfg.Auth.JWT.SigningMethod == "hs256" {
		if !cfg.devStore() {
			return nil, errors.New("JWT_SECRET is required")
		}
		secret, err := internal.NewResetToken()
		if err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
		cfg.Auth.JWT.PrivateKey = []byte(secret)
		logger.Warn("JWT_SECRET not set; using a generated secret, sessions end on restart")
	}

	return authcore.New().
		WithConfig(cfg.Auth).
		WithStore(store).
		WithLogger(logger).
		WithNotifier(authcore.LogNotifier{Logger: logger}).
		Build()
}

func runServer(ctx context.Context, cfg serverConfig) error {
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	engine, err := buildEngine(&cfg, store, logger)
	if err != nil {
		return err
	}
	defer engine.Close()
	for _, w := range engine.SecurityReport().Warnings {
		logger.Warn(w)
	}

	var metrics http.Handler
	if cfg.Auth.Metrics.Enabled {
		exp, err := prometheus.NewPrometheusExporter(engine)
		if err != nil {
			return fmt.Errorf("prometheus exporter: %w", err)
		}
		metrics = exp.Handler()
	}

	scheduler, err := scheduleSweep(engine, cfg.SweepSchedule, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(engine, cfg.TrustProxy, metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":  cfg.Listen,
			"store": cfg.Store.Kind,
		}).Info("authd listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// scheduleSweep registers the stale login-attempt purge on a cron schedule.
// An empty schedule disables it.
func scheduleSweep(engine *authcore.Engine, schedule string, logger logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()
	if schedule == "" {
		return c, nil
	}

	_, err := c.AddFunc(schedule, func() {
		n, err := engine.SweepLoginAttempts(context.Background())
		if err != nil {
			logger.WithError(err).Warn("login-attempt sweep failed")
			return
		}
		logger.WithField("removed", n).Debug("login-attempt sweep done")
	})
	if err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	return c, nil
}
