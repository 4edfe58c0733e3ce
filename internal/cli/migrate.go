package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/store"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply reference-table migrations",
	Long: `Migrate creates or upgrades the rivers, tenders_flood and tender_river
tables. Tender tables are created by the loader from each export's columns.

Every other command migrates on start; this command only migrates.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	db, err := store.Open(ctx, cfg.Database, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(verbose); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Migrations applied: %s\n", storeLabel(cfg.Database))
	return nil
}
