package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"postulaciones/application"
	"postulaciones/config"
	"postulaciones/domain"
	"postulaciones/infrastructure"
	"postulaciones/interfaces"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				log.Error().Err(err).Msg("invalid configuration")
				return err
			}
			if err := runHTTP(cmd.Context(), cfg, log); err != nil {
				log.Error().Err(err).Msg("http server failed")
				return err
			}
			return nil
		},
	}
}

func runHTTP(ctx context.Context, cfg config.App, log zerolog.Logger) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	if cfg.SeedDemo {
		if err := infrastructure.SeedDemoData(db, log); err != nil {
			log.Warn().Err(err).Msg("demo data not seeded")
		}
	}
	if err := infrastructure.ApplyPDFLicense(cfg.UnidocLicenseKey); err != nil {
		return errors.Wrap(err, "unidoc license not applied, certificates cannot be written")
	}

	metrics := infrastructure.NewMetrics()
	directory := infrastructure.NewDirectoryRepository(db)
	certificates := infrastructure.NewCertificateRepository(db)
	verifications := infrastructure.NewVerificationRepository(db)

	var sink domain.LedgerSink = verifications
	if cfg.LedgerMode == config.LedgerQueue {
		rmq, err := infrastructure.NewRabbitMQ(cfg.RabbitMQURL, cfg.LedgerQueue, log)
		if err != nil {
			return err
		}
		defer rmq.Close()
		sink = rmq
	}
	ledger := application.NewLedger(sink, verifications, cfg.LedgerTimeout, metrics, log)

	var limiter infrastructure.RateLimiter = infrastructure.NewMemoryRateLimiter(cfg.RateLimitPerMin)
	if cfg.RedisAddr != "" {
		client := infrastructure.NewRedis(cfg.RedisAddr)
		defer client.Close()
		limiter = infrastructure.NewRedisRateLimiter(client, cfg.RateLimitPerMin)
	}

	institution := domain.Issuer{
		Entity:  cfg.Entity,
		System:  cfg.SystemName,
		Version: cfg.SystemVersion,
		BaseURL: cfg.VerificationURL,
	}
	renderer, err := infrastructure.NewPDFRenderer(directory, institution, cfg.Location(), log)
	if err != nil {
		return err
	}
	var inspector domain.DocumentInspector
	if cfg.PDFSelfCheck {
		inspector = infrastructure.PDFInspector{}
	}
	artifacts, err := infrastructure.NewFileStore(cfg.StorageDir)
	if err != nil {
		return err
	}

	assembler := application.NewAssembler(
		directory, directory, directory,
		application.NewCodeMinter(certificates, log),
		application.AssemblerConfig{
			Timeout:          cfg.CollaboratorTimeout,
			Location:         cfg.Location(),
			FallbackReviewer: cfg.FallbackReviewerName,
		},
		log,
	)
	issuer := application.NewIssuer(assembler, renderer, inspector, artifacts, certificates, institution, metrics, log)
	resolver := application.NewResolver(certificates, directory, directory, directory, ledger, metrics, cfg.CollaboratorTimeout, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(infrastructure.GinLogger(log, "/healthz", "/metrics"))
	r.Use(metrics.GinMiddleware())
	r.Use(interfaces.CORS(cfg.AllowedOrigins))
	r.Use(interfaces.SecurityHeaders())

	interfaces.NewHTTPHandler(r, interfaces.HandlerDeps{
		DB:           db,
		Issuer:       issuer,
		Resolver:     resolver,
		Ledger:       ledger,
		Certificates: certificates,
		Limiter:      limiter,
		Metrics:      metrics.Handler(),
		JWTSecret:    cfg.JWTSecret,
		Location:     cfg.Location(),
		Log:          log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serveUntilSignal(ctx, srv, log)
}

// serveUntilSignal runs srv until SIGINT/SIGTERM, then gives outstanding
// requests 10 seconds to complete.
func serveUntilSignal(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced shutdown")
	}
	log.Info().Msg("server exited")
	return nil
}
