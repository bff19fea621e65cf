// Package agent drives the autonomous trading loop: it gathers market context
// for every auto-trading account, asks the decision oracle for a signal,
// persists it, and later executes pending signals through the order executor.
// Signal generation and execution are deliberately decoupled so a crashed
// execution pass can be retried without re-consulting the oracle.
package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"gorm.io/datatypes"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/executor"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	"github.com/netoalmanca/crypto-trader/internal/oracle"
	"github.com/netoalmanca/crypto-trader/internal/pkg/circuit"
	"github.com/netoalmanca/crypto-trader/internal/pkg/retry"
	"github.com/netoalmanca/crypto-trader/internal/portfolio"
	"github.com/netoalmanca/crypto-trader/internal/store/auditlog"
	"github.com/netoalmanca/crypto-trader/internal/store/gormstore"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

const indicatorTimeframe = "1d"

// Agent owns the trading cycle and the pending-signal sweep.
type Agent struct {
	store   *gormstore.Store
	oracle  *oracle.Client
	recon   *portfolio.Reconciler
	audit   *auditlog.Store
	factory GatewayFactory

	limiter ratelimit.Limiter
	breaker *circuit.Breaker
	retry   retry.Policy

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(store *gormstore.Store, oc *oracle.Client, audit *auditlog.Store, factory GatewayFactory, rps int) *Agent {
	if rps <= 0 {
		rps = 5
	}
	return &Agent{
		store:   store,
		oracle:  oc,
		recon:   portfolio.NewReconciler(store),
		audit:   audit,
		factory: factory,
		limiter: ratelimit.New(rps),
		breaker: circuit.NewBreaker("exchange", 5, 2*time.Minute),
		retry:   retry.DefaultPolicy(),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// accountLock serializes all order flow for one account.
func (a *Agent) accountLock(id int64) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[id]
	if !ok {
		l = &sync.Mutex{}
		a.locks[id] = l
	}
	return l
}

// RunCycle consults the oracle once per auto-trading account and asset, and
// stores the resulting signals. Accounts are processed sequentially; one
// failing account does not abort the cycle.
func (a *Agent) RunCycle(ctx context.Context) error {
	accounts, err := a.store.AutoTradingAccounts(ctx)
	if err != nil {
		return err
	}
	for _, acct := range accounts {
		if err := a.cycleAccount(ctx, acct); err != nil {
			logger.Errorf("trading cycle account %q: %v", acct.Name, err)
		}
	}
	return nil
}

func (a *Agent) cycleAccount(ctx context.Context, acct storemodel.AccountModel) error {
	lock := a.accountLock(acct.ID)
	lock.Lock()
	defer lock.Unlock()

	assets, err := a.store.ListAssets(ctx)
	if err != nil {
		return err
	}
	for _, asset := range assets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := a.signalAsset(ctx, acct, asset); err != nil {
			if errors.Is(err, oracle.ErrNoSignal) {
				logger.Warnf("oracle gave no usable signal for %s: %v", asset.Symbol, err)
				continue
			}
			logger.Errorf("signal %s/%s: %v", acct.Name, asset.Symbol, err)
		}
	}
	return nil
}

func (a *Agent) signalAsset(ctx context.Context, acct storemodel.AccountModel, asset storemodel.AssetModel) error {
	req := oracle.Request{
		AssetSymbol:   asset.Symbol,
		QuoteCurrency: asset.QuoteCurrency,
		CurrentPrice:  asset.CurrentPrice,
	}
	if holding, err := a.store.HoldingFor(ctx, acct.ID, asset.Symbol); err != nil {
		return err
	} else if holding != nil {
		req.HeldQuantity = holding.Quantity
		req.AverageCost = holding.AverageCost
	}
	if ind, err := a.store.Indicators(ctx, asset.Symbol, indicatorTimeframe); err != nil {
		return err
	} else if ind != nil {
		req.Indicators = []oracle.IndicatorInput{{
			RSI:           ind.RSI,
			MACDLine:      ind.MACDLine,
			MACDSignal:    ind.MACDSignal,
			BollingerHigh: ind.BollingerHigh,
			BollingerLow:  ind.BollingerLow,
			ATR:           ind.ATR,
		}}
	}

	decision, err := a.oracle.Decide(ctx, req)
	if err != nil {
		return err
	}
	sig := &storemodel.TradeSignalModel{
		AccountID:     acct.ID,
		AssetSymbol:   asset.Symbol,
		Decision:      decision.Decision,
		Confidence:    decision.Confidence,
		StopLoss:      decision.StopLoss,
		TakeProfit:    decision.TakeProfit,
		Justification: decision.Justification,
		RawPayload:    datatypes.JSON(decision.Raw),
		CreatedAtUnix: time.Now().Unix(),
	}
	if err := a.store.CreateSignal(ctx, sig); err != nil {
		return err
	}
	logger.Infof("signal #%d %s %s confidence=%s", sig.ID, decision.Decision, asset.Symbol, decision.Confidence)
	return nil
}

// RunSweep executes every pending BUY/SELL signal, oldest first. Transient
// exchange failures are retried with backoff; a tripped breaker skips the
// whole pass so a flapping exchange is not hammered.
func (a *Agent) RunSweep(ctx context.Context) error {
	if !a.breaker.Allow() {
		logger.Warnf("signal sweep skipped: exchange breaker open")
		return nil
	}
	signals, err := a.store.UnexecutedSignals(ctx)
	if err != nil {
		return err
	}
	if len(signals) == 0 {
		return nil
	}

	executors := make(map[int64]*executor.Executor)
	accounts := make(map[int64]*storemodel.AccountModel)

	for _, sig := range signals {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		acct, ok := accounts[sig.AccountID]
		if !ok {
			acct, err = a.store.Account(ctx, sig.AccountID)
			if err != nil {
				logger.Errorf("signal #%d: load account %d: %v", sig.ID, sig.AccountID, err)
				continue
			}
			accounts[sig.AccountID] = acct
		}
		if acct == nil || !acct.AutoTrading {
			continue
		}
		exec, ok := executors[acct.ID]
		if !ok {
			gw, err := a.factory(ctx, *acct)
			if err != nil {
				logger.Errorf("signal #%d: gateway for %q: %v", sig.ID, acct.Name, err)
				continue
			}
			exec = executor.New(a.store, a.recon, a.audit, gw)
			executors[acct.ID] = exec
		}
		a.executeSignal(ctx, exec, *acct, sig)
	}
	return nil
}

func (a *Agent) executeSignal(ctx context.Context, exec *executor.Executor, acct storemodel.AccountModel, sig storemodel.TradeSignalModel) {
	lock := a.accountLock(acct.ID)
	lock.Lock()
	defer lock.Unlock()

	a.limiter.Take()
	cfg := executor.ConfigFor(acct)
	var last *executor.Result
	err := retry.Do(ctx, a.retry, func() error {
		res, err := exec.ExecuteSignal(ctx, acct, cfg, sig)
		last = res
		return err
	}, func(err error) bool {
		if !errors.Is(err, exchange.ErrUnavailable) {
			return false
		}
		// A transient failure after submission must not re-run the whole
		// execution; the fills are already recorded and the next
		// reconciliation pass repairs holdings.
		return last == nil || !last.Submitted()
	})
	switch {
	case err == nil:
		a.breaker.RecordSuccess()
	case errors.Is(err, exchange.ErrUnavailable):
		a.breaker.RecordFailure()
		logger.Errorf("signal #%d: exchange unavailable: %v", sig.ID, err)
	case errors.Is(err, executor.ErrLowConfidence), errors.Is(err, executor.ErrSignalStale):
		logger.Infof("signal #%d skipped: %v", sig.ID, err)
	default:
		a.breaker.RecordSuccess()
		logger.Errorf("signal #%d: %v", sig.ID, err)
	}
}
