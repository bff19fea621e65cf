package agent

import (
	"context"
	"fmt"

	"github.com/netoalmanca/crypto-trader/internal/credentials"
	"github.com/netoalmanca/crypto-trader/internal/exchange"
	"github.com/netoalmanca/crypto-trader/internal/exchange/binance"
	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

// GatewayFactory builds an authenticated exchange gateway for one account.
// Tests substitute their own factory.
type GatewayFactory func(ctx context.Context, acct storemodel.AccountModel) (exchange.Gateway, error)

// BinanceFactory unseals the account's API credentials and returns a spot
// gateway pointed at mainnet or testnet per the account flag.
func BinanceFactory(keeper *credentials.Keeper) GatewayFactory {
	return func(ctx context.Context, acct storemodel.AccountModel) (exchange.Gateway, error) {
		pair, err := keeper.ForAccount(acct)
		if err != nil {
			return nil, fmt.Errorf("credentials for account %q: %w", acct.Name, err)
		}
		return binance.New(ctx, binance.Config{
			APIKey:    pair.APIKey,
			APISecret: pair.APISecret,
			Testnet:   acct.Testnet,
		})
	}
}
