package broadcast

import (
	"strings"
	"testing"

	"crypto-digest-bot/internal/market"

	"github.com/stretchr/testify/require"
)

func TestCompose_FormatsAssetLines(t *testing.T) {
	snap := &market.Snapshot{Quotes: []market.Quote{
		{ID: "bitcoin", PriceUSD: 65432.1, Change24Pct: -2.345},
	}}

	msg := Compose(snap, "Market is stable.")
	require.Contains(t, msg, "BITCOIN: $65,432.10 (-2.35%)")
	require.Contains(t, msg, "Market is stable.")

	// Analysis section comes after the asset lines.
	require.Less(t, strings.Index(msg, "BITCOIN"), strings.Index(msg, "Market is stable."))
}

func TestCompose_OneLinePerAssetInSnapshotOrder(t *testing.T) {
	snap := &market.Snapshot{Quotes: []market.Quote{
		{ID: "bitcoin", PriceUSD: 65000, Change24Pct: 1.5},
		{ID: "ethereum", PriceUSD: 3500.456, Change24Pct: -0.004},
		{ID: "cardano", PriceUSD: 0.45, Change24Pct: 12.339},
	}}

	msg := Compose(snap, "x")
	require.Contains(t, msg, "BITCOIN: $65,000.00 (+1.50%)")
	require.Contains(t, msg, "ETHEREUM: $3,500.46 (-0.00%)")
	require.Contains(t, msg, "CARDANO: $0.45 (+12.34%)")

	require.Less(t, strings.Index(msg, "BITCOIN"), strings.Index(msg, "ETHEREUM"))
	require.Less(t, strings.Index(msg, "ETHEREUM"), strings.Index(msg, "CARDANO"))
}

func TestCompose_IsDeterministic(t *testing.T) {
	snap := &market.Snapshot{Quotes: []market.Quote{
		{ID: "bitcoin", PriceUSD: 65432.1, Change24Pct: -2.345},
	}}

	require.Equal(t, Compose(snap, "same"), Compose(snap, "same"))
}
