package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AssetModel is one tracked tradeable unit. Price fields are written by the
// price feed job only; the trading core treats them as read-only.
type AssetModel struct {
	Symbol         string          `gorm:"column:symbol;primaryKey"`
	Name           string          `gorm:"column:name"`
	QuoteCurrency  string          `gorm:"column:quote_currency"`
	CurrentPrice   decimal.Decimal `gorm:"column:current_price;type:TEXT"`
	PriceUpdatedAt int64           `gorm:"column:price_updated_at"`
	CreatedAtUnix  int64           `gorm:"column:created_at"`
}

func (AssetModel) TableName() string { return "assets" }

// Pair returns the exchange trading pair for the asset, e.g. BTC+USDT.
func (a AssetModel) Pair() string { return a.Symbol + a.QuoteCurrency }

// AccountModel holds one user's exchange credentials (encrypted at rest),
// environment flag and agent risk parameters.
type AccountModel struct {
	ID                  int64           `gorm:"column:id;primaryKey"`
	Name                string          `gorm:"column:name;uniqueIndex"`
	APIKeyEnc           string          `gorm:"column:api_key_enc"`
	APISecretEnc        string          `gorm:"column:api_secret_enc"`
	Testnet             bool            `gorm:"column:testnet"`
	AutoTrading         bool            `gorm:"column:auto_trading"`
	QuoteCurrency       string          `gorm:"column:quote_currency"`
	BuyRiskFraction     decimal.Decimal `gorm:"column:buy_risk_fraction;type:TEXT"`
	SellRiskFraction    decimal.Decimal `gorm:"column:sell_risk_fraction;type:TEXT"`
	ConfidenceThreshold decimal.Decimal `gorm:"column:confidence_threshold;type:TEXT"`
	CreatedAtUnix       int64           `gorm:"column:created_at"`
	UpdatedAtUnix       int64           `gorm:"column:updated_at"`
}

func (AccountModel) TableName() string { return "accounts" }

// HoldingModel is derived state, rebuilt wholesale by reconciliation. It is
// never patched in place.
type HoldingModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	AccountID     int64           `gorm:"column:account_id;uniqueIndex:idx_holding_account_asset,priority:1"`
	AssetSymbol   string          `gorm:"column:asset_symbol;uniqueIndex:idx_holding_account_asset,priority:2"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:TEXT"`
	AverageCost   decimal.Decimal `gorm:"column:average_cost;type:TEXT"`
	UpdatedAtUnix int64           `gorm:"column:updated_at"`
}

func (HoldingModel) TableName() string { return "holdings" }

// TransactionModel is one immutable ledger entry. ExternalID carries the
// exchange trade id verbatim and is the idempotency key for exchange-sourced
// entries; manual entries leave it NULL.
type TransactionModel struct {
	ID             int64           `gorm:"column:id;primaryKey"`
	AccountID      int64           `gorm:"column:account_id;index;uniqueIndex:idx_ledger_external,priority:1"`
	AssetSymbol    string          `gorm:"column:asset_symbol;index"`
	Side           string          `gorm:"column:side"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:TEXT"`
	PricePerUnit   decimal.Decimal `gorm:"column:price_per_unit;type:TEXT"`
	TotalValue     decimal.Decimal `gorm:"column:total_value;type:TEXT"`
	Fees           decimal.Decimal `gorm:"column:fees;type:TEXT"`
	FeeAsset       string          `gorm:"column:fee_asset"`
	TradeTimeUnix  int64           `gorm:"column:trade_time;index"`
	RecordedAtUnix int64           `gorm:"column:recorded_at"`
	ExternalID     *string         `gorm:"column:external_id;uniqueIndex:idx_ledger_external,priority:2"`
	OrderID        string          `gorm:"column:order_id"`
	Notes          string          `gorm:"column:notes"`
	SignalID       *int64          `gorm:"column:signal_id"`
}

func (TransactionModel) TableName() string { return "transactions" }

// TradeSignalModel is one oracle decision. Rows are kept forever for later
// performance review; only the Executed flag ever changes.
type TradeSignalModel struct {
	ID            int64               `gorm:"column:id;primaryKey"`
	AccountID     int64               `gorm:"column:account_id;index"`
	AssetSymbol   string              `gorm:"column:asset_symbol"`
	Decision      string              `gorm:"column:decision"`
	Confidence    decimal.Decimal     `gorm:"column:confidence;type:TEXT"`
	StopLoss      decimal.NullDecimal `gorm:"column:stop_loss;type:TEXT"`
	TakeProfit    decimal.NullDecimal `gorm:"column:take_profit;type:TEXT"`
	Justification string              `gorm:"column:justification"`
	Executed      bool                `gorm:"column:executed;index"`
	RawPayload    datatypes.JSON      `gorm:"column:raw_payload;type:TEXT"`
	CreatedAtUnix int64               `gorm:"column:created_at"`
}

func (TradeSignalModel) TableName() string { return "trade_signals" }

// SnapshotModel is one end-of-day portfolio valuation per account.
type SnapshotModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	AccountID     int64           `gorm:"column:account_id;uniqueIndex:idx_snapshot_account_day,priority:1"`
	Day           string          `gorm:"column:day;uniqueIndex:idx_snapshot_account_day,priority:2"`
	TotalValue    decimal.Decimal `gorm:"column:total_value;type:TEXT"`
	Currency      string          `gorm:"column:currency"`
	Breakdown     datatypes.JSON  `gorm:"column:breakdown;type:TEXT"`
	CreatedAtUnix int64           `gorm:"column:created_at"`
}

func (SnapshotModel) TableName() string { return "portfolio_snapshots" }

// IndicatorModel stores the latest computed technical indicators per asset
// and timeframe; input for the decision oracle.
type IndicatorModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	AssetSymbol   string  `gorm:"column:asset_symbol;uniqueIndex:idx_indicator_asset_tf,priority:1"`
	Timeframe     string  `gorm:"column:timeframe;uniqueIndex:idx_indicator_asset_tf,priority:2"`
	RSI           float64 `gorm:"column:rsi"`
	MACDLine      float64 `gorm:"column:macd_line"`
	MACDSignal    float64 `gorm:"column:macd_signal"`
	BollingerHigh float64 `gorm:"column:bollinger_high"`
	BollingerLow  float64 `gorm:"column:bollinger_low"`
	ATR           float64 `gorm:"column:atr"`
	UpdatedAtUnix int64   `gorm:"column:updated_at"`
}

func (IndicatorModel) TableName() string { return "technical_indicators" }
