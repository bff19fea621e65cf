// Package indicator computes technical indicators over public kline data and
// persists the latest snapshot per asset, feeding the decision oracle prompt.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/netoalmanca/crypto-trader/internal/exchange"
)

// Settings describe the indicator parameters; zero values fall back to the
// conventional periods.
type Settings struct {
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerDev    float64
	ATRPeriod       int
}

func (s Settings) withDefaults() Settings {
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.MACDFast <= 0 {
		s.MACDFast = 12
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = 26
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = 9
	}
	if s.BollingerPeriod <= 0 {
		s.BollingerPeriod = 20
	}
	if s.BollingerDev <= 0 {
		s.BollingerDev = 2
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 14
	}
	return s
}

// Values holds the latest value of each computed indicator.
type Values struct {
	RSI           float64
	MACDLine      float64
	MACDSignal    float64
	BollingerHigh float64
	BollingerLow  float64
	ATR           float64
	LastClose     float64
}

// Compute derives the indicator snapshot from a candle series. It needs at
// least as many candles as the slowest lookback, otherwise an error is
// returned and nothing is computed.
func Compute(candles []exchange.Candle, cfg Settings) (Values, error) {
	cfg = cfg.withDefaults()
	minCandles := cfg.MACDSlow + cfg.MACDSignal
	if n := cfg.BollingerPeriod; n > minCandles {
		minCandles = n
	}
	if len(candles) < minCandles {
		return Values{}, fmt.Errorf("need at least %d candles, got %d", minCandles, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	rsi := talib.Rsi(closes, cfg.RSIPeriod)
	macd, signal, _ := talib.Macd(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	upper, _, lower := talib.BBands(closes, cfg.BollingerPeriod, cfg.BollingerDev, cfg.BollingerDev, talib.SMA)
	atr := talib.Atr(highs, lows, closes, cfg.ATRPeriod)

	v := Values{
		RSI:           lastValid(rsi),
		MACDLine:      lastValid(macd),
		MACDSignal:    lastValid(signal),
		BollingerHigh: lastValid(upper),
		BollingerLow:  lastValid(lower),
		ATR:           lastValid(atr),
		LastClose:     closes[len(closes)-1],
	}
	return v, nil
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}
