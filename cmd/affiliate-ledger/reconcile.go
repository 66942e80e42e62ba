package main

import (
	"fmt"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/app/setup"
	"github.com/LavaJover/shvark-affiliate-ledger/internal/usecase/reconciliation"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute member stats from the ledger and report mismatches",
		Long: `Runs one reconciliation pass and exits.

Examples:
  affiliate-ledger reconcile
  affiliate-ledger reconcile --fix`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			// kafka для разового прогона не нужна
			cfg.KafkaService.Host = ""
			deps, err := setup.InitializeDependencies(cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			antifraud, err := setup.InitializeAntiFraud(cmd.Context(), deps)
			if err != nil {
				return err
			}
			uc, err := setup.InitializeUseCases(deps, antifraud)
			if err != nil {
				return err
			}

			run, mismatches, err := uc.Reconciliation.Run(cmd.Context(), reconciliation.RunOptions{Fix: fix})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s (%s): members=%d mismatches=%d fixed=%d skipped=%d conflicts=%d\n",
				run.ID, run.Mode, run.MembersScanned, run.Mismatches, run.Fixed, run.Skipped, run.Conflicts)
			for _, m := range mismatches {
				target := m.MemberID
				if m.CommissionID != "" {
					target = "commission " + m.CommissionID
				}
				fmt.Fprintf(out, "  %-40s %-18s cached=%s recomputed=%s %s\n",
					target, m.Field, m.Cached, m.Recomputed, m.Action)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "write recomputed values back")
	return cmd
}
