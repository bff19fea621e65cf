package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/executor"
	"github.com/netoalmanca/crypto-trader/internal/portfolio"
	"github.com/netoalmanca/crypto-trader/internal/quant"
)

var errConfirmReset = errors.New("refusing to wipe without --yes")

func newTradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade [buy|sell] SYMBOL",
		Short: "Place a market order through the execution pipeline",
		Long: "Places a market order for a tracked asset. Exactly one of --quantity or\n" +
			"--quote-amount selects how the order is sized; the amount is quantized to\n" +
			"the exchange's lot size before submission.\n\n" +
			"Example: trader trade buy BTC --account main --quote-amount 50",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := parseSide(args[0])
			if err != nil {
				return err
			}
			symbol := strings.ToUpper(args[1])

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
			intent, err := intentFromFlags(cmd, side, symbol)
			if err != nil {
				return err
			}
			gw, err := app.gatewayFor(ctx, *acct)
			if err != nil {
				return err
			}

			exec := executor.New(app.store, portfolio.NewReconciler(app.store), app.audit, gw)
			res, err := exec.Execute(ctx, *acct, executor.ConfigFor(*acct), intent)
			if err != nil {
				return err
			}
			if res.Unfilled {
				cmd.Printf("order %d accepted but returned no fills yet; run `trader sync` later\n", res.OrderID)
				return nil
			}
			cmd.Printf("%s %s %s @ avg %s (%d fills, order %d)\n",
				side, quant.FormatAmount(res.ExecutedQuantity), symbol,
				quant.FormatAmount(res.AveragePrice), res.FillCount, res.OrderID)
			return nil
		},
	}
	cmd.Flags().String("account", "", "account name")
	cmd.Flags().String("quantity", "", "order size in base asset units")
	cmd.Flags().String("quote-amount", "", "order size in quote currency")
	return cmd
}

func parseSide(raw string) (exchange.Side, error) {
	switch strings.ToLower(raw) {
	case "buy":
		return exchange.SideBuy, nil
	case "sell":
		return exchange.SideSell, nil
	default:
		return "", fmt.Errorf("side must be buy or sell, got %q", raw)
	}
}

func intentFromFlags(cmd *cobra.Command, side exchange.Side, symbol string) (executor.TradeIntent, error) {
	qtyStr, _ := cmd.Flags().GetString("quantity")
	quoteStr, _ := cmd.Flags().GetString("quote-amount")
	switch {
	case qtyStr != "" && quoteStr != "":
		return executor.TradeIntent{}, fmt.Errorf("--quantity and --quote-amount are mutually exclusive")
	case qtyStr != "":
		qty, err := decimal.NewFromString(qtyStr)
		if err != nil {
			return executor.TradeIntent{}, fmt.Errorf("invalid --quantity: %w", err)
		}
		return executor.QuantityIntent(side, symbol, qty), nil
	case quoteStr != "":
		amount, err := decimal.NewFromString(quoteStr)
		if err != nil {
			return executor.TradeIntent{}, fmt.Errorf("invalid --quote-amount: %w", err)
		}
		return executor.QuoteAmountIntent(side, symbol, amount), nil
	default:
		return executor.TradeIntent{}, fmt.Errorf("one of --quantity or --quote-amount is required")
	}
}
