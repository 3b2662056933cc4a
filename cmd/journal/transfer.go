package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trading-journal-go/internal/backup"
	"trading-journal-go/internal/csvimport"
)

func newImportCmd(a *app) *cobra.Command {
	var defaults csvimport.Row

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from a broker CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, skipped, err := csvimport.Parse(f, defaults)
			if err != nil {
				return err
			}
			st, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}

			report := st.ImportTrades(cmd.Context(), rows)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d trades\n", report.Imported)
			for _, rowErr := range skipped {
				fmt.Fprintf(out, "  skipped %s\n", rowErr.Error())
			}
			for _, failure := range report.Failed {
				fmt.Fprintf(out, "  row %d failed (%s): %s\n", failure.Index+1, failure.Kind, failure.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&defaults.AccountName, "account", "a", "", "account the trades belong to (required)")
	cmd.Flags().StringVar(&defaults.Risk, "risk", "", "risk per trade when the file has no risk column")
	cmd.Flags().StringVar(&defaults.Tags, "tags", "", "comma separated tags added to rows without tags")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.newStore(a.owner)
			snap, err := st.Backup(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := backup.Encode(w, snap); err != nil {
				return err
			}
			a.log.Info("Backup written",
				zap.String("output", output),
				zap.Int("accounts", len(snap.Accounts)),
				zap.Int("trades", len(snap.Trades)),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup.json>",
		Short: "Replace the journal with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			snap, err := backup.Decode(f)
			if err != nil {
				return err
			}
			st := a.newStore(a.owner)
			if err := st.Restore(cmd.Context(), snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d accounts and %d trades\n", len(snap.Accounts), len(snap.Trades))
			return nil
		},
	}
}
