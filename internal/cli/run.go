package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/netoalmanca/crypto-trader/internal/agent"
	"github.com/netoalmanca/crypto-trader/internal/analysis/indicator"
	"github.com/netoalmanca/crypto-trader/internal/exchange/binance"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/oracle"
	"github.com/netoalmanca/crypto-trader/internal/portfolio"
	"github.com/netoalmanca/crypto-trader/internal/pricefeed"
	"github.com/netoalmanca/crypto-trader/internal/scheduler"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the trading agent until interrupted",
		Long: "Starts the background jobs: price feed, indicator refresh, the oracle\n" +
			"trading cycle, the pending-signal sweep and daily portfolio snapshots.\n" +
			"Stops cleanly on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(configPath(cmd))
			if err != nil {
				return err
			}
			defer app.close()
			return runAgent(app)
		},
	}
}

func runAgent(app *app) error {
	cfg := app.cfg
	if app.keeper == nil {
		return fmt.Errorf("the agent needs an exchange master key (set TRADER_EXCHANGE_MASTER_KEY)")
	}
	var trading *agent.Agent
	if cfg.Agent.Enabled {
		oracleClient, err := oracle.NewClient(oracle.Config{
			APIKey:  cfg.Oracle.APIKey,
			Model:   cfg.Oracle.Model,
			BaseURL: cfg.Oracle.BaseURL,
			Timeout: cfg.Oracle.Timeout,
		})
		if err != nil {
			return err
		}
		trading = agent.New(app.store, oracleClient, app.audit, agent.BinanceFactory(app.keeper), cfg.Agent.RequestsPerSecond)
	}

	public := binance.NewPublic(binance.Config{Testnet: cfg.Exchange.Testnet, HTTPTimeout: cfg.Exchange.HTTPTimeout})
	feed := pricefeed.New(app.store, public)
	indicators := indicator.NewService(app.store, public, indicator.Settings{})
	snapshotter := portfolio.NewSnapshotter(app.store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Infof("agent started (testnet=%v cycle=%s sweep=%s)", cfg.Exchange.Testnet, cfg.Agent.CycleInterval, cfg.Agent.SweepInterval)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Run(ctx, "pricefeed", cfg.Agent.PriceEvery(), feed.RefreshAll)
		return nil
	})
	g.Go(func() error {
		scheduler.Run(ctx, "indicators", cfg.Agent.IndicatorEvery(), indicators.RefreshAll)
		return nil
	})
	if cfg.Agent.Enabled {
		g.Go(func() error {
			scheduler.Run(ctx, "cycle", cfg.Agent.CycleEvery(), trading.RunCycle)
			return nil
		})
		g.Go(func() error {
			scheduler.Run(ctx, "sweep", cfg.Agent.SweepEvery(), trading.RunSweep)
			return nil
		})
	} else {
		logger.Infof("agent trading loop disabled; only market data jobs are running")
	}
	g.Go(func() error {
		// The snapshotter dedups per calendar day, so an hourly tick only
		// fills in the first run after midnight UTC.
		scheduler.Run(ctx, "snapshot", time.Hour, func(ctx context.Context) error {
			return snapshotAll(ctx, app, snapshotter)
		})
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Infof("agent stopped")
	return nil
}

func snapshotAll(ctx context.Context, app *app, snap *portfolio.Snapshotter) error {
	accounts, err := app.store.AutoTradingAccounts(ctx)
	if err != nil {
		return err
	}
	for _, acct := range accounts {
		if err := snap.SnapshotAccount(ctx, acct); err != nil {
			logger.Errorf("snapshot %q: %v", acct.Name, err)
		}
	}
	return nil
}
