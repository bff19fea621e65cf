package config

import (
	"time"

	"github.com/netoalmanca/crypto-trader/internal/scheduler"
)

func parseInterval(s string) (time.Duration, bool) {
	return scheduler.ParseIntervalDuration(s)
}

func mustInterval(s string) time.Duration {
	d, _ := parseInterval(s)
	return d
}

// Interval accessors. Load has already validated the strings, so these never
// return zero.

func (a AgentConfig) CycleEvery() time.Duration     { return mustInterval(a.CycleInterval) }
func (a AgentConfig) SweepEvery() time.Duration     { return mustInterval(a.SweepInterval) }
func (a AgentConfig) PriceEvery() time.Duration     { return mustInterval(a.PriceInterval) }
func (a AgentConfig) IndicatorEvery() time.Duration { return mustInterval(a.IndicatorInterval) }
