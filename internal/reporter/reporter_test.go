package reporter

import (
	"bytes"
	"testing"

	"maker-console/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cfd(state models.StateKey, margin, quantity, profit string) models.Cfd {
	return models.Cfd{
		OrderID:         uuid.New(),
		TradingPair:     "BTCUSD",
		Position:        models.Sell,
		InitialPrice:    decimal.RequireFromString("41000"),
		Leverage:        Leverage,
		Margin:          decimal.RequireFromString(margin),
		QuantityUSD:     decimal.RequireFromString(quantity),
		ProfitBTC:       decimal.RequireFromString(profit),
		ProfitInPercent: decimal.Zero,
		State:           state,
	}
}

func TestSummarize(t *testing.T) {
	cfds := []models.Cfd{
		cfd(models.Open, "0.001", "100", "0.0001"),
		cfd(models.PendingCommit, "0.002", "50", "-0.0003"),
		cfd(models.IncomingOrderRequest, "0.5", "1000", "0"),
		cfd(models.Closed, "0.1", "10", "0.2"),
	}

	s := Summarize(cfds)

	assert.Equal(t, 4, s.TotalCfds)
	assert.Equal(t, 2, s.GroupCounts[models.GroupOpen])
	assert.Equal(t, 1, s.GroupCounts[models.GroupPendingOrder])
	assert.Equal(t, 1, s.GroupCounts[models.GroupClosed])
	assert.Equal(t, 0, s.GroupCounts[models.GroupOpening])
	assert.Equal(t, "0.003", s.OpenMargin.String())
	assert.Equal(t, "150", s.OpenQuantity.String())
	assert.Equal(t, "-0.0002", s.OpenProfitBTC.String())

	sum := 0
	for _, n := range s.GroupCounts {
		sum += n
	}
	assert.Equal(t, s.TotalCfds, sum)
}

func TestTabTitles(t *testing.T) {
	s := Summarize([]models.Cfd{
		cfd(models.Open, "0", "0", "0"),
		cfd(models.IncomingRollOverProposal, "0", "0", "0"),
		cfd(models.IncomingRollOverProposal, "0", "0", "0"),
	})

	assert.Equal(t, []string{
		"Open [1]",
		"Pending Orders [0]",
		"Pending Settlements [0]",
		"Pending Roll Overs [2]",
		"Opening [0]",
		"Closed [0]",
	}, TabTitles(s))
}

func TestRenderOrder(t *testing.T) {
	assert.Contains(t, RenderOrder(nil), "No active sell order")

	o := &models.Order{
		ID:          uuid.New(),
		TradingPair: "BTCUSD",
		Position:    models.Sell,
		Price:       decimal.RequireFromString("41410"),
		MinQuantity: decimal.RequireFromString("10"),
		MaxQuantity: decimal.RequireFromString("100"),
		Leverage:    2,
	}
	out := RenderOrder(o)
	assert.Contains(t, out, "$41410.00")
	assert.Contains(t, out, "$10.00 - $100.00")
	assert.Contains(t, out, "x2")
	assert.Contains(t, out, models.ShortID(o.ID))
}

func TestRenderCfdTableMarksSelection(t *testing.T) {
	cfds := []models.Cfd{
		cfd(models.Open, "0.001", "100", "0"),
		cfd(models.Open, "0.001", "200", "0"),
	}

	out := RenderCfdTable(cfds, 1)
	assert.Contains(t, out, models.ShortID(cfds[0].OrderID))
	assert.Contains(t, out, models.ShortID(cfds[1].OrderID))
	assert.Contains(t, out, "$200.00")
	assert.Contains(t, out, ">")

	assert.Contains(t, RenderCfdTable(nil, -1), "no CFDs")
}

func TestWriteReport(t *testing.T) {
	state := &models.DashboardState{
		Cfds:   []models.Cfd{cfd(models.IncomingSettlementProposal, "0.01", "100", "0")},
		Wallet: &models.WalletInfo{Balance: decimal.RequireFromString("0.25"), Address: "bcrt1qmaker"},
		Quote:  &models.PriceInfo{Bid: decimal.RequireFromString("40900"), Ask: decimal.RequireFromString("41000")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, state, 1.01))
	out := buf.String()

	assert.Contains(t, out, "0.25000000 BTC")
	assert.Contains(t, out, "bcrt1qmaker")
	assert.Contains(t, out, "Ask: $41000.00")
	assert.Contains(t, out, "Suggested offer: $41410.00")
	assert.Contains(t, out, "Pending Settlements [1]")
	assert.Contains(t, out, "No active sell order")
}

func TestRenderReportEmptyState(t *testing.T) {
	out := RenderReport(nil, 1.01)
	assert.Contains(t, out, "waiting for wallet")
	assert.Contains(t, out, "waiting for quote")
	assert.Contains(t, out, "Open [0]")
	assert.NotContains(t, out, "Suggested offer")
}
