package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"postulaciones/config"
	"postulaciones/infrastructure"
)

func main() {
	root := &cobra.Command{
		Use:          "postulaciones",
		Short:        "Certificate issuance and QR verification service",
		SilenceUsage: true,
	}
	serve := serveCommand()
	root.RunE = serve.RunE
	root.AddCommand(serve, ledgerWorkerCommand(), migrateCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the root logger.
func bootstrap() (config.App, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.App{}, infrastructure.NewLogger("info", false), err
	}
	return cfg, infrastructure.NewLogger(cfg.LogLevel, cfg.LogPretty), nil
}

// openDatabase connects and migrates. Directory tables are only created on
// sqlite, where nothing else owns them.
func openDatabase(cfg config.App, log zerolog.Logger) (*gorm.DB, error) {
	db, err := infrastructure.OpenDatabase(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return nil, err
	}
	if err := infrastructure.Migrate(db, cfg.DBDriver == config.DriverSQLite); err != nil {
		closeDatabase(db, log)
		return nil, err
	}
	return db, nil
}

func closeDatabase(db *gorm.DB, log zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
}
