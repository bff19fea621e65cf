package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage trading accounts",
	}
	cmd.AddCommand(newAccountCreateCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountAuditCmd())
	return cmd
}

func newAccountCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Register an account with sealed API credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(configPath(cmd))
			if err != nil {
				return err
			}
			defer app.close()
			if app.keeper == nil {
				return fmt.Errorf("no exchange master key configured (set TRADER_EXCHANGE_MASTER_KEY)")
			}

			ctx := context.Background()
			name := args[0]
			if existing, err := app.store.AccountByName(ctx, name); err != nil {
				return err
			} else if existing != nil {
				return fmt.Errorf("account %q already exists", name)
			}

			apiKey, _ := cmd.Flags().GetString("api-key")
			apiSecret, _ := cmd.Flags().GetString("api-secret")
			if apiKey == "" || apiSecret == "" {
				return fmt.Errorf("--api-key and --api-secret are required")
			}
			keyEnc, err := app.keeper.Seal(apiKey)
			if err != nil {
				return err
			}
			secretEnc, err := app.keeper.Seal(apiSecret)
			if err != nil {
				return err
			}

			testnet, _ := cmd.Flags().GetBool("testnet")
			autoTrading, _ := cmd.Flags().GetBool("auto-trading")
			quote, _ := cmd.Flags().GetString("quote")
			buyRisk, err := decimalFlag(cmd, "buy-risk")
			if err != nil {
				return err
			}
			sellRisk, err := decimalFlag(cmd, "sell-risk")
			if err != nil {
				return err
			}
			confidence, err := decimalFlag(cmd, "confidence")
			if err != nil {
				return err
			}

			now := time.Now().Unix()
			acct := &storemodel.AccountModel{
				Name:                name,
				APIKeyEnc:           keyEnc,
				APISecretEnc:        secretEnc,
				Testnet:             testnet,
				AutoTrading:         autoTrading,
				QuoteCurrency:       quote,
				BuyRiskFraction:     buyRisk,
				SellRiskFraction:    sellRisk,
				ConfidenceThreshold: confidence,
				CreatedAtUnix:       now,
				UpdatedAtUnix:       now,
			}
			if err := app.store.CreateAccount(ctx, acct); err != nil {
				return err
			}
			cmd.Printf("account %q created (id %d, testnet=%v)\n", name, acct.ID, testnet)
			return nil
		},
	}
	cmd.Flags().String("api-key", "", "exchange API key")
	cmd.Flags().String("api-secret", "", "exchange API secret")
	cmd.Flags().Bool("testnet", false, "use the exchange testnet")
	cmd.Flags().Bool("auto-trading", false, "include the account in the agent loop")
	cmd.Flags().String("quote", "USDT", "quote currency")
	cmd.Flags().String("buy-risk", "0.05", "fraction of free quote balance per BUY")
	cmd.Flags().String("sell-risk", "0.25", "fraction of the held position per SELL")
	cmd.Flags().String("confidence", "0.7", "minimum oracle confidence to execute")
	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trading accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(configPath(cmd))
			if err != nil {
				return err
			}
			defer app.close()

			accounts, err := app.store.AutoTradingAccounts(context.Background())
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				cmd.Println("no auto-trading accounts")
				return nil
			}
			for _, acct := range accounts {
				cmd.Printf("%-4d %-20s testnet=%-5v quote=%s buy=%s sell=%s conf=%s\n",
					acct.ID, acct.Name, acct.Testnet, acct.QuoteCurrency,
					acct.BuyRiskFraction, acct.SellRiskFraction, acct.ConfidenceThreshold)
			}
			return nil
		},
	}
}

func newAccountAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit NAME",
		Short: "Show recent execution audit entries for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(configPath(cmd))
			if err != nil {
				return err
			}
			defer app.close()

			ctx := context.Background()
			acct, err := app.accountByName(ctx, args[0])
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := app.audit.Recent(ctx, acct.ID, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				ts := time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339)
				cmd.Printf("%s %-4s %-8s %-12s %s %s\n", ts, e.Side, e.Symbol, e.State, e.OrderID, e.Detail)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "number of entries to show")
	return cmd
}

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}
