package binance

import "time"

const (
	mainnetBaseURL = "https://api.binance.com"
	testnetBaseURL = "https://testnet.binance.vision"
)

type Config struct {
	APIKey      string
	APISecret   string
	Testnet     bool
	BaseURL     string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		if c.Testnet {
			c.BaseURL = testnetBaseURL
		} else {
			c.BaseURL = mainnetBaseURL
		}
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	return c
}
