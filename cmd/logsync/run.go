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

	"github.com/devblac/logsync/internal/engine"
	"github.com/devblac/logsync/internal/health"
	"github.com/devblac/logsync/internal/metrics"
	"github.com/devblac/logsync/internal/source/evm"
	"github.com/devblac/logsync/internal/spec"
	"github.com/devblac/logsync/internal/storage"
	"github.com/devblac/logsync/internal/tracing"
	"github.com/spf13/cobra"
)

var (
	flagOnce     bool
	flagContract string
	flagSpec     string
	flagHealth   string
	flagMetrics  string
)

func init() {
	runCmd.Flags().BoolVar(&flagOnce, "once", false, "Sync every chain up to its head and exit")
	runCmd.Flags().StringVar(&flagContract, "contract", "", "Only sync specs of this contract")
	runCmd.Flags().StringVar(&flagSpec, "spec", "", "Only sync this spec (requires --contract)")
	runCmd.Flags().StringVar(&flagHealth, "health", "", "Health check HTTP address (e.g., :8080)")
	runCmd.Flags().StringVar(&flagMetrics, "metrics", "", "Metrics HTTP address (e.g., :9090)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync event logs into their tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(cfgPath, spec.Filter{Contract: flagContract, Spec: flagSpec})
		if err != nil {
			return err
		}
		cfg := a.cfg

		shutdownTracing, err := tracing.Init(ctx, "logsync", cfg.Tracing.OTLPEndpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()

		store, err := storage.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		var mtr *metrics.Metrics
		if flagMetrics != "" {
			mtr = metrics.Init()
			log.Info("metrics enabled", "addr", flagMetrics)
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv := &http.Server{Addr: flagMetrics, Handler: mux, ReadHeaderTimeout: 3 * time.Second}
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics server error", "error", err)
				}
			}()
		}

		if flagHealth != "" {
			clients := map[string]evm.BlockClient{}
			for _, g := range a.groups {
				c, err := dialChain(ctx, cfg, g.Chain, mtr)
				if err != nil {
					return fmt.Errorf("health client for chain %s: %w", g.Chain, err)
				}
				defer c.Close()
				clients[g.Chain] = c
			}
			healthSrv := health.Serve(flagHealth, health.Checker{
				DBPing:  store.Ping,
				RPCPing: health.NewRPCChecker(clients).Ping,
			})
			log.Info("health check enabled", "addr", flagHealth)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = health.Shutdown(shutdownCtx, healthSrv)
			}()
		}

		interval, err := cfg.Sync.IntervalDuration()
		if err != nil {
			return err
		}
		syncer := engine.NewSyncer(store, storage.NewWriter(store, a.schema), engine.Options{
			ChunkSize: cfg.Sync.ChunkSize,
			Metrics:   mtr,
			Logger:    log,
			Tracer:    tracing.Tracer("github.com/devblac/logsync/internal/engine"),
		})
		driver := engine.NewDriver(syncer, dialer(cfg, mtr), interval, log)

		log.Info("logsync starting",
			"version", version,
			"driver", store.Dialect().String(),
			"chains", len(a.groups),
			"specs", len(a.specs),
			"once", flagOnce,
		)

		if flagOnce {
			if err := driver.RunOnce(ctx, a.groups); err != nil {
				log.Error("sync failed", "error", err, "config_error", engine.IsConfigError(err))
				return err
			}
			log.Info("sync complete")
			return nil
		}

		err = driver.RunDaemon(ctx, a.groups)
		log.Info("logsync stopped")
		return err
	},
}
