package main

import (
	"github.com/spf13/cobra"

	"postulaciones/infrastructure"
)

func migrateCommand() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the certificate and ledger tables",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				log.Error().Err(err).Msg("invalid configuration")
				return err
			}
			db, err := openDatabase(cfg, log)
			if err != nil {
				log.Error().Err(err).Msg("migration failed")
				return err
			}
			defer closeDatabase(db, log)

			if seed || cfg.SeedDemo {
				if err := infrastructure.SeedDemoData(db, log); err != nil {
					log.Error().Err(err).Msg("seed failed")
					return err
				}
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("migration complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "insert demo postings and an HR reviewer into an empty directory")
	return cmd
}
