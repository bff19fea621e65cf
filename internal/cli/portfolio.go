package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/portfolio"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import missing trades from the exchange and reconcile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(configPath(cmd))
			if err != nil {
				return err
			}
			defer app.close()

			ctx := context.Background()
			name, _ := cmd.Flags().GetString("account")
			acct, err := app.accountByName(ctx, name)
			if err != nil {
				return err
			}
			gw, err := app.gatewayFor(ctx, *acct)
			if err != nil {
				return err
			}
			syncer := portfolio.NewSyncer(app.store, portfolio.NewReconciler(app.store))
			imported, err := syncer.SyncTrades(ctx, acct.ID, gw)
			if err != nil {
				return err
			}
			cmd.Printf("imported %d trades for %q\n", imported, acct.Name)
			return nil
		},
	}
	cmd.Flags().String("account", "", "account name")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild holdings from live exchange balances",
		Long: "Fetches the account's spot balances and rebuilds the holdings table from\n" +
			"them; the cost basis of each position comes from the BUY history in the\n" +
			"local ledger. The ledger itself is not touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(configPath(cmd))
			if err != nil {
				return err
			}
			defer app.close()

			ctx := context.Background()
			name, _ := cmd.Flags().GetString("account")
			acct, err := app.accountByName(ctx, name)
			if err != nil {
				return err
			}
			gw, err := app.gatewayFor(ctx, *acct)
			if err != nil {
				return err
			}
			if err := portfolio.NewReconciler(app.store).Reconcile(ctx, acct.ID, gw); err != nil {
				return err
			}
			cmd.Printf("holdings reconciled for %q\n", acct.Name)
			return nil
		},
	}
	cmd.Flags().String("account", "", "account name")
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe derived state and rebuild it from the exchange",
		Long: "Deletes the account's transactions, holdings and snapshots in one\n" +
			"database transaction, then re-imports the full trade history and\n" +
			"reconciles. Trade signals are kept, they are history, not derived state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(configPath(cmd))
			if err != nil {
				return err
			}
			defer app.close()

			ctx := context.Background()
			name, _ := cmd.Flags().GetString("account")
			acct, err := app.accountByName(ctx, name)
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return errConfirmReset
			}
			gw, err := app.gatewayFor(ctx, *acct)
			if err != nil {
				return err
			}
			if err := app.store.ResetAccount(ctx, acct.ID); err != nil {
				return err
			}
			logger.Infof("account %q wiped, re-importing trade history", acct.Name)
			syncer := portfolio.NewSyncer(app.store, portfolio.NewReconciler(app.store))
			imported, err := syncer.SyncTrades(ctx, acct.ID, gw)
			if err != nil {
				return err
			}
			cmd.Printf("reset complete for %q: %d trades re-imported\n", acct.Name, imported)
			return nil
		},
	}
	cmd.Flags().String("account", "", "account name")
	cmd.Flags().Bool("yes", false, "confirm the wipe")
	return cmd
}
