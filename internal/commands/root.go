package commands

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finsplit-dev/finsplit/internal/buildinfo"
	"github.com/finsplit-dev/finsplit/internal/config"
	"github.com/finsplit-dev/finsplit/internal/ingest"
	"github.com/finsplit-dev/finsplit/internal/logger"
)

// workspace is the loaded state shared by subcommands.
type workspace struct {
	root string
	cfg  *config.Config
	log  zerolog.Logger
}

func (w *workspace) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.root, p)
}

func (w *workspace) storePath() string { return w.path(w.cfg.Storage.Path) }

func (w *workspace) ingestService() *ingest.Service {
	logPath := ""
	if w.cfg.Ingest.LogFile != "" {
		logPath = w.path(w.cfg.Ingest.LogFile)
	}
	return ingest.NewService(ingest.Options{
		StorePath: w.storePath(),
		LogPath:   logPath,
		AllSheets: w.cfg.Ingest.AllSheets,
		Logger:    w.log,
	})
}

type globalFlags struct {
	dir      string
	logLevel string
}

// load reads finsplit.yaml from the workspace directory and sets up logging.
func (g *globalFlags) load(cmd *cobra.Command) (*workspace, error) {
	root, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadOrDefault(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	log, err := logger.Configure(cmd.ErrOrStderr(), level, logger.Format(cfg.Log.Format))
	if err != nil {
		return nil, err
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return &workspace{root: root, cfg: cfg, log: log}, nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:     "finsplit",
		Short:   "Bank statement ledger and spending breakdown",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", ".", "workspace directory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (overrides finsplit.yaml)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newIngestCommand(&g))
	rootCmd.AddCommand(newListCommand(&g))
	rootCmd.AddCommand(newSummaryCommand(&g))
	rootCmd.AddCommand(newAccountsCommand(&g))
	rootCmd.AddCommand(newExportCommand(&g))
	rootCmd.AddCommand(newServeCommand(&g))

	return rootCmd
}
