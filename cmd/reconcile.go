package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/markjakearzadon/guardtip-gobackend/internal/services"
)

func reconcileCmd() *cobra.Command {
	var (
		days     int
		walletID string
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Book recent gateway payments into the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.payments.Reconcile(cmd.Context(), services.ReconcileOptions{
				WalletID: walletID,
				Window:   time.Duration(days) * 24 * time.Hour,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "trailing window in days (defaults to RECONCILE_WINDOW_DAYS)")
	cmd.Flags().StringVar(&walletID, "wallet", "", "restrict to one wallet")
	return cmd
}
