package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"postulaciones/config"
	"postulaciones/infrastructure"
)

func ledgerWorkerCommand() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "ledger-worker",
		Short: "Consume queued verifications and store them in the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				log.Error().Err(err).Msg("invalid configuration")
				return err
			}
			if err := runLedgerWorker(cmd.Context(), cfg, metricsAddr, log); err != nil {
				log.Error().Err(err).Msg("ledger worker failed")
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, disabled when empty")
	return cmd
}

func runLedgerWorker(ctx context.Context, cfg config.App, metricsAddr string, log zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	rmq, err := infrastructure.NewRabbitMQ(cfg.RabbitMQURL, cfg.LedgerQueue, log)
	if err != nil {
		return err
	}
	defer rmq.Close()

	metrics := infrastructure.NewMetrics()
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	worker := log.With().Str("component", "ledger-worker").Logger()
	worker.Info().Str("queue", cfg.LedgerQueue).Msg("waiting for verifications")
	err = rmq.ConsumeLedger(ctx, infrastructure.NewVerificationRepository(db), metrics.LedgerConsumed)
	if err != nil {
		return err
	}
	worker.Info().Msg("ledger worker stopped")
	return nil
}
