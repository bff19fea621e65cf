package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storemodel "github.com/netoalmanca/crypto-trader/internal/store/model"
)

func TestSnapshotValuesHoldingsAtFeedPrices(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.ReplaceHoldings(ctx, acct.ID, []storemodel.HoldingModel{
		{AccountID: acct.ID, AssetSymbol: "BTC", Quantity: dec("0.5"), AverageCost: dec("20000")},
		{AccountID: acct.ID, AssetSymbol: "ETH", Quantity: dec("2"), AverageCost: dec("1500")},
	}))

	snap := NewSnapshotter(st)
	snap.nowFn = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	require.NoError(t, snap.SnapshotAccount(ctx, acct))

	snaps, err := st.ListSnapshots(ctx, acct.ID, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "2026-03-01", snaps[0].Day)
	// 0.5*25000 + 2*1800 = 16100
	assert.True(t, snaps[0].TotalValue.Equal(dec("16100")), "total %s", snaps[0].TotalValue)
}

func TestSnapshotOncePerDay(t *testing.T) {
	st, acct := newStore(t)
	ctx := context.Background()

	snap := NewSnapshotter(st)
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	snap.nowFn = func() time.Time { return day }

	require.NoError(t, snap.SnapshotAccount(ctx, acct))
	require.NoError(t, snap.SnapshotAccount(ctx, acct))

	snaps, err := st.ListSnapshots(ctx, acct.ID, 10)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	// Next day gets its own row.
	snap.nowFn = func() time.Time { return day.Add(24 * time.Hour) }
	require.NoError(t, snap.SnapshotAccount(ctx, acct))
	snaps, err = st.ListSnapshots(ctx, acct.ID, 10)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}
