package oracle

import (
	"fmt"
	"strings"
)

// buildPrompt renders the decision request. The exact wording is not load
// bearing; the reply contract in decisionSchema is.
func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a quantitative crypto analyst. Produce a swing-trade signal for %s/%s.\n\n", req.AssetSymbol, req.QuoteCurrency)

	fmt.Fprintf(&b, "Portfolio context:\n")
	fmt.Fprintf(&b, "- Held quantity: %s %s\n", req.HeldQuantity, req.AssetSymbol)
	fmt.Fprintf(&b, "- Average buy price: %s %s\n", req.AverageCost, req.QuoteCurrency)
	fmt.Fprintf(&b, "- Current price: %s %s\n\n", req.CurrentPrice, req.QuoteCurrency)

	if len(req.Indicators) > 0 {
		b.WriteString("Technical history, oldest first (daily):\n")
		for _, ind := range req.Indicators {
			fmt.Fprintf(&b, "- RSI=%.2f MACD=%.6f signal=%.6f BB_high=%.4f BB_low=%.4f ATR=%.4f\n",
				ind.RSI, ind.MACDLine, ind.MACDSignal, ind.BollingerHigh, ind.BollingerLow, ind.ATR)
		}
		b.WriteString("\n")
	}
	if req.SentimentSummary != "" {
		fmt.Fprintf(&b, "Market sentiment summary: %s\n\n", req.SentimentSummary)
	}

	b.WriteString("Reply ONLY with a JSON object with keys: " +
		`"decision" ("BUY"|"SELL"|"HOLD"), "confidence_score" (0.0-1.0), ` +
		`"stop_loss_price" (number or null), "take_profit_price" (number or null), ` +
		`"justification" (short string).`)
	return b.String()
}
