package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuleuven/nfs4xattr"
	"github.com/kuleuven/nfs4xattr/config"
	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/kuleuven/nfs4xattr/vfs/attrcache"
	"github.com/kuleuven/nfs4xattr/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured modules over NFSv4",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		closer, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
		if err != nil {
			return err
		}

		defer closer.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
}

func serve(ctx context.Context, cfg *config.Config) (err error) {
	modules, err := config.CreateModules(ctx, cfg)
	if err != nil {
		return err
	}

	pool := worker.New(cfg.VFS.WorkerConcurrency)
	cache := attrcache.New(cfg.AttrCache.Size, cfg.AttrCache.TTL)

	fs, err := vfs.New(cfg.VFS.Options(), cache, pool, modules...)
	if err != nil {
		return multierr.Combine(err, pool.Close(), config.CloseModules(modules))
	}

	// Modules are closed after the pool has drained.
	defer func() {
		err = multierr.Combine(err, pool.Close(), fs.Close())
	}()

	if cfg.Metrics.Enabled {
		metrics := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Logger.Infof("Serving metrics at %s", cfg.Metrics.Listen)

			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Logger.Errorf("metrics server failed: %v", err)
			}
		}()

		defer metrics.Close()
	}

	srv, err := nfs4xattr.Listen(cfg.Server.Listen, fs)
	if err != nil {
		return err
	}

	srv.RequireUnixAuth = cfg.Server.RequireUnixAuth

	done := make(chan error, 1)

	go func() {
		done <- srv.Serve(ctx)
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
	}

	logger.Logger.Info("shutting down")

	select {
	case err = <-done:
		return err
	case <-time.After(cfg.Server.ShutdownTimeout):
		return fmt.Errorf("connections did not drain within %s", cfg.Server.ShutdownTimeout)
	}
}
