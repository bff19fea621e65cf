package indicator

import (
	"context"
	"time"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/logger"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// store is the slice of the persistence layer the service touches.
type store interface {
	ListAssets(ctx context.Context) ([]storemodel.AssetModel, error)
	UpsertIndicators(ctx context.Context, ind *storemodel.IndicatorModel) error
}

// Service refreshes the indicator snapshot of every registered asset from
// public kline data.
type Service struct {
	store    store
	source   exchange.KlineSource
	settings Settings

	// Timeframe is the kline interval used for all indicators.
	Timeframe string
	// Lookback is how many candles to request per asset.
	Lookback int
}

func NewService(st store, source exchange.KlineSource, settings Settings) *Service {
	return &Service{
		store:     st,
		source:    source,
		settings:  settings,
		Timeframe: "1d",
		Lookback:  120,
	}
}

// RefreshAll recomputes indicators for every asset. Per-asset failures are
// logged and skipped so one bad symbol cannot starve the rest.
func (s *Service) RefreshAll(ctx context.Context) error {
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return err
	}
	for _, asset := range assets {
		if err := s.refreshOne(ctx, asset); err != nil {
			logger.Warnf("indicator refresh %s: %v", asset.Symbol, err)
		}
	}
	return nil
}

func (s *Service) refreshOne(ctx context.Context, asset storemodel.AssetModel) error {
	candles, err := s.source.Klines(ctx, asset.Pair(), s.Timeframe, s.Lookback)
	if err != nil {
		return err
	}
	vals, err := Compute(candles, s.settings)
	if err != nil {
		return err
	}
	return s.store.UpsertIndicators(ctx, &storemodel.IndicatorModel{
		AssetSymbol:   asset.Symbol,
		Timeframe:     s.Timeframe,
		RSI:           vals.RSI,
		MACDLine:      vals.MACDLine,
		MACDSignal:    vals.MACDSignal,
		BollingerHigh: vals.BollingerHigh,
		BollingerLow:  vals.BollingerLow,
		ATR:           vals.ATR,
		UpdatedAtUnix: time.Now().Unix(),
	})
}
