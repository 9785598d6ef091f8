package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eris-dev/eris/internal/config"
	"github.com/eris-dev/eris/internal/store"
)

func newInitCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new member ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(configPath(cmd), dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "ledger database file (default members.sqlite3)")

	return cmd
}

func runInit(cfgPath, dbPath string) error {
	cfg := config.Default()
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	// Seeding the watermark with today means accrual starts counting
	// from the month of initialization.
	ctx := context.Background()
	if err := st.Init(ctx, today()); err != nil {
		return err
	}

	fmt.Printf("Initialized member ledger %s (config %s)\n", cfg.Database, cfgPath)
	return nil
}
