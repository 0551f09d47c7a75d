package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"maker-console/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// Leverage is fixed for every maker offer.
const Leverage = 2

// Summary aggregates the CFD book of the maker.
type Summary struct {
	TotalCfds     int
	GroupCounts   map[models.StateGroup]int
	OpenMargin    decimal.Decimal // BTC locked in Open-group CFDs
	OpenQuantity  decimal.Decimal // USD notional of Open-group CFDs
	OpenProfitBTC decimal.Decimal
}

// Summarize counts CFDs per group and totals the open book.
func Summarize(cfds []models.Cfd) Summary {
	s := Summary{
		TotalCfds:   len(cfds),
		GroupCounts: make(map[models.StateGroup]int, len(models.StateGroups)),
	}
	for g, members := range models.GroupCfds(cfds) {
		s.GroupCounts[g] = len(members)
		if g != models.GroupOpen {
			continue
		}
		for _, c := range members {
			s.OpenMargin = s.OpenMargin.Add(c.Margin)
			s.OpenQuantity = s.OpenQuantity.Add(c.QuantityUSD)
			s.OpenProfitBTC = s.OpenProfitBTC.Add(c.ProfitBTC)
		}
	}
	return s
}

// TabTitles returns the tab captions with counts, in display order.
func TabTitles(s Summary) []string {
	titles := make([]string, len(models.StateGroups))
	for i, g := range models.StateGroups {
		titles[i] = fmt.Sprintf("%s [%d]", g.Title(), s.GroupCounts[g])
	}
	return titles
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Usd formats an amount the way the order form shows it.
func Usd(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func btc(d decimal.Decimal) string {
	return d.StringFixed(8) + " BTC"
}

func timestamp(unix int64) string {
	if unix <= 0 {
		return "-"
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}

// RenderWallet renders the wallet tile.
func RenderWallet(w *models.WalletInfo) string {
	lines := []string{titleStyle.Render("Wallet")}
	if w == nil {
		return strings.Join(append(lines, dimStyle.Render("waiting for wallet...")), "\n")
	}
	lines = append(lines,
		"Balance: "+btc(w.Balance),
		"Address: "+w.Address,
		dimStyle.Render("Updated: "+timestamp(w.LastUpdatedAt)))
	return strings.Join(lines, "\n")
}

// RenderQuote renders the reference price tile.
func RenderQuote(q *models.PriceInfo) string {
	lines := []string{titleStyle.Render("Reference Price")}
	if q == nil {
		return strings.Join(append(lines, dimStyle.Render("waiting for quote...")), "\n")
	}
	lines = append(lines,
		"Bid: "+Usd(q.Bid),
		"Ask: "+Usd(q.Ask),
		dimStyle.Render("Updated: "+timestamp(q.LastUpdatedAt)))
	return strings.Join(lines, "\n")
}

// RenderOrder renders the tile of the maker's current sell order.
func RenderOrder(o *models.Order) string {
	lines := []string{titleStyle.Render("Current Sell Order")}
	if o == nil {
		return strings.Join(append(lines, dimStyle.Render("No active sell order")), "\n")
	}
	lines = append(lines,
		fmt.Sprintf("%s %s  id %s", o.Position, o.TradingPair, models.ShortID(o.ID)),
		"Price:       "+Usd(o.Price),
		fmt.Sprintf("Quantity:    %s - %s", Usd(o.MinQuantity), Usd(o.MaxQuantity)),
		fmt.Sprintf("Leverage:    x%d", o.Leverage),
		"Liquidation: "+Usd(o.LiquidationPrice),
		dimStyle.Render("Created: "+timestamp(o.CreationTimestamp)))
	return strings.Join(lines, "\n")
}

// RenderCfdTable renders one group's CFDs. selected marks a row with a cursor;
// pass -1 for none.
func RenderCfdTable(cfds []models.Cfd, selected int) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "ID", "Position", "Quantity", "Price", "Liquidation", "Margin", "Leverage", "PnL", "PnL %", "State", "Since"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})
	for i, c := range cfds {
		cursor := ""
		if i == selected {
			cursor = ">"
		}
		t.AppendRow(table.Row{
			cursor,
			models.ShortID(c.OrderID),
			string(c.Position),
			Usd(c.QuantityUSD),
			Usd(c.InitialPrice),
			Usd(c.LiquidationPrice),
			c.Margin.StringFixed(8),
			fmt.Sprintf("x%d", c.Leverage),
			profit(c.ProfitBTC, c.ProfitBTC.StringFixed(8)),
			profit(c.ProfitInPercent, c.ProfitInPercent.StringFixed(2)+"%"),
			string(c.State),
			timestamp(c.StateTransitionTimestamp),
		})
	}
	if len(cfds) == 0 {
		t.AppendRow(table.Row{"", "-", "no CFDs"})
	}
	return t.Render()
}

func profit(d decimal.Decimal, s string) string {
	switch d.Sign() {
	case 1:
		return upStyle.Render(s)
	case -1:
		return downStyle.Render(s)
	}
	return s
}

// RenderReport renders the whole dashboard with every group expanded. spread is
// the offer spread used for the suggested price line.
func RenderReport(state *models.DashboardState, spread float64) string {
	if state == nil {
		state = &models.DashboardState{}
	}
	summary := Summarize(state.Cfds)

	var b strings.Builder
	b.WriteString(titleStyle.Render("========== Maker Dashboard ==========") + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		RenderWallet(state.Wallet), "    ",
		RenderQuote(state.Quote), "    ",
		RenderOrder(state.Order)))
	b.WriteString("\n\n")

	if state.Quote != nil {
		fmt.Fprintf(&b, "Suggested offer: %s (ask x%g)\n", Usd(models.SuggestOfferPrice(state.Quote.Ask, spread)), spread)
	}
	fmt.Fprintf(&b, "CFDs: %d  open margin %s  open quantity %s  open PnL %s\n\n",
		summary.TotalCfds, btc(summary.OpenMargin), Usd(summary.OpenQuantity), btc(summary.OpenProfitBTC))

	groups := models.GroupCfds(state.Cfds)
	titles := TabTitles(summary)
	for i, g := range models.StateGroups {
		b.WriteString(titleStyle.Render(titles[i]) + "\n")
		b.WriteString(RenderCfdTable(groups[g], -1) + "\n\n")
	}
	if !state.LastUpdateTime.IsZero() {
		b.WriteString(dimStyle.Render("Last update: "+state.LastUpdateTime.Format("2006-01-02 15:04:05")) + "\n")
	}
	return b.String()
}

// WriteReport prints the dashboard to w.
func WriteReport(w io.Writer, state *models.DashboardState, spread float64) error {
	_, err := io.WriteString(w, RenderReport(state, spread))
	return err
}
