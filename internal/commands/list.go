package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/finsplit-dev/finsplit/internal/accounts"
	"github.com/finsplit-dev/finsplit/internal/acctno"
	"github.com/finsplit-dev/finsplit/internal/export"
	"github.com/finsplit-dev/finsplit/internal/logger"
	"github.com/finsplit-dev/finsplit/internal/model"
	"github.com/finsplit-dev/finsplit/internal/report"
	"github.com/finsplit-dev/finsplit/internal/store"
)

func loadTransactions(ctx context.Context, ws *workspace) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := store.With(ctx, ws.storePath(), func(s *store.Store) error {
		var err error
		txns, err = s.All(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Debug().Int("count", len(txns)).Str("store", ws.storePath()).Msg("ledger loaded")
	return txns, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func newListCommand(g *globalFlags) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored transactions in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if account != "" && !acctno.Match(account) {
				return fmt.Errorf("invalid account number %q: want DDDD-DDD-DDDD", account)
			}
			ws, err := g.load(cmd)
			if err != nil {
				return err
			}
			txns, err := loadTransactions(cmd.Context(), ws)
			if err != nil {
				return err
			}
			if account != "" {
				txns = filterAccount(txns, account)
			}
			return writeTransactionTable(cmd.OutOrStdout(), txns)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only show transactions for this account number")

	return cmd
}

func filterAccount(txns []model.Transaction, number string) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if t.AccountNumber == number {
			out = append(out, t)
		}
	}
	return out
}

func writeTransactionTable(w io.Writer, txns []model.Transaction) error {
	if len(txns) == 0 {
		_, err := fmt.Fprintln(w, "No transactions stored.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tNAME\tAMOUNT\tACCOUNT\tTRANSACTION ID\tMEMO")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date, t.Name, t.Amount.StringFixed(2), t.AccountNumber, t.TransactionID, t.Memo)
	}
	return tw.Flush()
}

func newSummaryCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals per transaction name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := g.load(cmd)
			if err != nil {
				return err
			}
			txns, err := loadTransactions(cmd.Context(), ws)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), report.Summarize(txns))
		},
	}
}

func writeSummary(w io.Writer, s report.Summary) error {
	if s.Count == 0 {
		_, err := fmt.Fprintln(w, "No transactions stored.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tTOTAL\tCOUNT\tSHARE")
	for _, sl := range s.Slices {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s%%\n", sl.Name, sl.Total.StringFixed(2), sl.Count, sl.Percent.StringFixed(2))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t%d\t\n", s.Total.StringFixed(2), s.Count)
	return tw.Flush()
}

func newAccountsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts [number]",
		Short: "List the accounts that appear in the ledger",
		Long: "List every account in the ledger, or with a number, only the names\n" +
			"recorded under that account number.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := g.load(cmd)
			if err != nil {
				return err
			}
			txns, err := loadTransactions(cmd.Context(), ws)
			if err != nil {
				return err
			}
			svc := accounts.FromTransactions(txns)
			all := svc.All()
			if len(args) == 1 {
				if !svc.Exists(args[0]) {
					return fmt.Errorf("account %s not found in ledger", args[0])
				}
				all = svc.Get(args[0])
			}
			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No accounts found.")
				return nil
			}
			tw := newTable(out)
			fmt.Fprintln(tw, "NUMBER\tNAME\tTRANSACTIONS\tTOTAL")
			for _, a := range all {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.Number, a.Name, a.Transactions, a.Total.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

func newExportCommand(g *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := g.load(cmd)
			if err != nil {
				return err
			}
			txns, err := loadTransactions(cmd.Context(), ws)
			if err != nil {
				return err
			}
			if output == "" {
				return export.WriteTransactions(cmd.OutOrStdout(), txns)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := export.WriteTransactions(f, txns); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txns), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
