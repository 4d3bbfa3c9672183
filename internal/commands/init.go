package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/finsplit-dev/finsplit/internal/config"
	"github.com/finsplit-dev/finsplit/internal/importer"
	"github.com/finsplit-dev/finsplit/internal/store"
)

func newInitCommand() *cobra.Command {
	var storagePath string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new finsplit workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, storagePath)
		},
	}

	cmd.Flags().StringVar(&storagePath, "db", "", "ledger database path (default finsplit.sqlite)")

	return cmd
}

func runInit(cmd *cobra.Command, dir, storagePath string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	// Create directory structure.
	dirs := []string{
		importer.ImportDir,
		importer.ProcessedDir,
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	if storagePath != "" {
		cfg.Storage.Path = storagePath
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	dbPath := cfg.Storage.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(dir, dbPath)
	}
	if err := store.With(cmd.Context(), dbPath, func(*store.Store) error { return nil }); err != nil {
		return fmt.Errorf("creating ledger: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized finsplit workspace at %s\n", dir)
	return nil
}
