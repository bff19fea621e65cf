package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/netoalmanca/crypto-trader/internal/agent"
	"github.com/netoalmanca/crypto-trader/internal/config"
	"github.com/netoalmanca/crypto-trader/internal/credentials"
	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/store/auditlog"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// app carries everything a command needs after bootstrap.
type app struct {
	cfg     *config.Config
	store   *gormstore.Store
	audit   *auditlog.Store
	keeper  *credentials.Keeper
	logFile *os.File
}

// openApp loads the configuration, sets up logging and opens both databases.
// The credentials keeper is only present when a master key is configured;
// commands that need authenticated exchange access check for it.
func openApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logFile, err := setupLogOutput(cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("log file setup failed: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)

	st, err := gormstore.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database failed: %w", err)
	}
	audit, err := auditlog.New(cfg.Database.AuditPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("opening audit database failed: %w", err)
	}

	var keeper *credentials.Keeper
	if cfg.Exchange.MasterKey != "" {
		keeper, err = credentials.NewKeeper(cfg.Exchange.MasterKey)
		if err != nil {
			st.Close()
			audit.Close()
			return nil, fmt.Errorf("master key rejected: %w", err)
		}
	}

	a := &app{cfg: cfg, store: st, audit: audit, keeper: keeper, logFile: logFile}
	if cfg.App.AssetsFile != "" {
		if err := a.seedAssets(context.Background()); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.audit != nil {
		a.audit.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// seedAssets upserts the tracked-asset registry into the database so every
// job sees the same asset universe.
func (a *app) seedAssets(ctx context.Context) error {
	seeds, err := config.LoadAssets(a.cfg.App.AssetsFile)
	if err != nil {
		return fmt.Errorf("loading assets file failed: %w", err)
	}
	for _, seed := range seeds {
		err := a.store.UpsertAsset(ctx, &storemodel.AssetModel{
			Symbol:        seed.Symbol,
			Name:          seed.Name,
			QuoteCurrency: seed.Quote,
			CreatedAtUnix: time.Now().Unix(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// accountByName loads an account or fails with a hint listing what exists.
func (a *app) accountByName(ctx context.Context, name string) (*storemodel.AccountModel, error) {
	if name == "" {
		return nil, fmt.Errorf("--account is required")
	}
	acct, err := a.store.AccountByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("account %q not found", name)
	}
	return acct, nil
}

// gatewayFor builds an authenticated gateway for one account.
func (a *app) gatewayFor(ctx context.Context, acct storemodel.AccountModel) (exchange.Gateway, error) {
	if a.keeper == nil {
		return nil, fmt.Errorf("no exchange master key configured (set TRADER_EXCHANGE_MASTER_KEY)")
	}
	return agent.BinanceFactory(a.keeper)(ctx, acct)
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
