package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finsplit-dev/finsplit/internal/ingest"
)

func newIngestCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest statement spreadsheets into the ledger",
		Long: "Ingest the given statement files. With no arguments, every supported file in\n" +
			"import/ is ingested and, when move_processed is set, moved to import/processed/.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := g.load(cmd)
			if err != nil {
				return err
			}
			return runIngest(cmd, ws, args)
		},
	}
	return cmd
}

func runIngest(cmd *cobra.Command, ws *workspace, paths []string) error {
	svc := ws.ingestService()
	out := cmd.OutOrStdout()

	var batch ingest.Batch
	var err error
	if len(paths) > 0 {
		files := make([]ingest.File, len(paths))
		for i, p := range paths {
			files[i] = ingest.LocalFile(p)
		}
		batch, err = svc.IngestFiles(cmd.Context(), files)
	} else {
		batch, err = svc.IngestDir(cmd.Context(), ws.root, ws.cfg.Ingest.MoveProcessed)
	}

	for _, r := range batch.Files {
		fmt.Fprintln(out, r.Message())
	}
	if err != nil {
		return err
	}
	if len(batch.Files) == 0 {
		fmt.Fprintln(out, "No statement files found in import/")
		return nil
	}
	if failed := batch.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed", len(failed), len(batch.Files))
	}
	return nil
}
