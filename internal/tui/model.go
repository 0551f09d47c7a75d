package tui

import (
	"fmt"
	"strings"
	"time"

	"maker-console/internal/models"
	"maker-console/internal/reporter"
	"maker-console/internal/statemanager"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dispatcher accepts operator events; *statemanager.StateManager satisfies it.
type Dispatcher interface {
	DispatchEvent(event statemanager.NormalizedEvent)
}

// SnapshotMsg carries a new state snapshot into the program.
type SnapshotMsg struct {
	State *models.DashboardState
}

type tickMsg time.Time

type focus int

const (
	focusMinQuantity focus = iota
	focusMaxQuantity
	focusPrice
	focusAutoRefresh
	focusSubmit
	focusTable
	focusCount
)

var inputFields = map[focus]models.FormField{
	focusMinQuantity: models.MinQuantityField,
	focusMaxQuantity: models.MaxQuantityField,
	focusPrice:       models.PriceField,
}

// Model is the maker dashboard. It never mutates state itself: every operator
// intent is dispatched and the result arrives as the next SnapshotMsg.
type Model struct {
	dispatch Dispatcher
	state    *models.DashboardState
	ttl      time.Duration
	now      func() time.Time

	focus  focus
	tab    int
	cursor int

	width  int
	height int
}

// New builds the model. ttl is how long a notification stays on screen.
func New(dispatch Dispatcher, initial *models.DashboardState, ttl time.Duration) Model {
	if initial == nil {
		initial = &models.DashboardState{}
	}
	return Model{
		dispatch: dispatch,
		state:    initial,
		ttl:      ttl,
		now:      time.Now,
		focus:    focusPrice,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		if msg.State != nil {
			m.state = msg.State
			m.clampCursor()
		}
		return m, nil
	case tickMsg:
		return m, tick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		m.focus = (m.focus + 1) % focusCount
		return m, nil
	case "shift+tab":
		m.focus = (m.focus + focusCount - 1) % focusCount
		return m, nil
	case "left":
		m.tab = (m.tab + len(models.StateGroups) - 1) % len(models.StateGroups)
		m.cursor = 0
		return m, nil
	case "right":
		m.tab = (m.tab + 1) % len(models.StateGroups)
		m.cursor = 0
		return m, nil
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		m.cursor++
		m.clampCursor()
		return m, nil
	case "esc":
		m.send(statemanager.DismissNotificationEvent, uuid.Nil)
		return m, nil
	case "enter":
		if m.focus != focusTable && m.canSubmit() {
			m.send(statemanager.SubmitOrderEvent, nil)
		}
		return m, nil
	case " ", "space":
		if m.focus == focusAutoRefresh {
			m.send(statemanager.ToggleAutoRefreshEvent, nil)
		}
		return m, nil
	case "backspace":
		if field, ok := inputFields[m.focus]; ok {
			m.send(statemanager.FieldEditEvent, statemanager.FieldEditEventData{Field: field, Kind: statemanager.EditBackspace})
		}
		return m, nil
	}

	if m.focus == focusTable {
		m.handleTableKey(msg.String())
		return m, nil
	}
	if field, ok := inputFields[m.focus]; ok && msg.Type == tea.KeyRunes {
		if text := numeric(msg.Runes); text != "" {
			m.send(statemanager.FieldEditEvent, statemanager.FieldEditEventData{Field: field, Kind: statemanager.EditAppend, Text: text})
		}
	}
	return m, nil
}

func numeric(runes []rune) string {
	var b strings.Builder
	for _, r := range runes {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (m Model) handleTableKey(key string) {
	cfd, ok := m.selected()
	if !ok {
		return
	}
	var action models.CfdAction
	switch key {
	case "a":
		action, ok = models.AcceptActionFor(cfd.State)
	case "r":
		action, ok = models.RejectActionFor(cfd.State)
	case "c":
		action, ok = models.Commit, true
	default:
		return
	}
	if !ok {
		return
	}
	m.send(statemanager.CfdActionEvent, statemanager.CfdActionEventData{OrderID: cfd.OrderID, Action: action})
}

func (m Model) send(t statemanager.EventType, data interface{}) {
	m.dispatch.DispatchEvent(statemanager.NewEvent(t, data))
}

func (m Model) visibleCfds() []models.Cfd {
	return models.GroupCfds(m.state.Cfds)[models.StateGroups[m.tab]]
}

func (m Model) selected() (models.Cfd, bool) {
	cfds := m.visibleCfds()
	if m.cursor < 0 || m.cursor >= len(cfds) {
		return models.Cfd{}, false
	}
	return cfds[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.visibleCfds())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// canSubmit mirrors the submit button: disabled while a request is in flight or
// while the offer price is not a positive number.
func (m Model) canSubmit() bool {
	if m.state.Submitting {
		return false
	}
	price, err := decimal.NewFromString(m.state.Form.Price)
	return err == nil && price.IsPositive()
}

func (m Model) submitLabel() string {
	switch {
	case m.state.Submitting:
		return "Submitting..."
	case m.state.Order != nil:
		return "Update Sell Order"
	}
	return "Create Sell Order"
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39")).Padding(0, 1)
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	labelStyle   = lipgloss.NewStyle().Width(14)
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("25")).Foreground(lipgloss.Color("231"))
	disabledBtn  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("238")).Foreground(lipgloss.Color("245"))
	activeTab    = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	inactiveTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	offlineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	levelStyles = map[models.NotificationLevel]lipgloss.Style{
		models.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		models.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		models.LevelError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

func (m Model) View() string {
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(m.renderForm()), " ",
		boxStyle.Render(reporter.RenderOrder(m.state.Order)), " ",
		boxStyle.Render(reporter.RenderWallet(m.state.Wallet)+"\n\n"+reporter.RenderQuote(m.state.Quote)))

	sections := []string{m.renderHeader(), top, m.renderTabs(), reporter.RenderCfdTable(m.visibleCfds(), m.tableCursor())}
	if pending := m.renderPending(); pending != "" {
		sections = append(sections, pending)
	}
	if notes := m.renderNotifications(); notes != "" {
		sections = append(sections, notes)
	}
	sections = append(sections, helpStyle.Render("tab focus | 0-9 . edit | space auto-refresh | enter submit | ←/→ tabs | ↑/↓ select | a accept | r reject | c commit | esc dismiss | q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	status := helpStyle.Render("daemon: connecting")
	switch m.state.Backend {
	case models.BackendOnline:
		status = onlineStyle.Render("daemon: online")
	case models.BackendOffline:
		status = offlineStyle.Render("daemon: OFFLINE")
	}
	return headerStyle.Render("Hermes Maker") + " " + status + " " + helpStyle.Render(m.now().Format("15:04:05"))
}

func (m Model) renderForm() string {
	form := m.state.Form
	line := func(f focus, label, value string) string {
		l := labelStyle.Render(label)
		if m.focus == f {
			return focusStyle.Render("> ") + l + focusStyle.Render(value+"_")
		}
		return "  " + l + value
	}

	autoRefresh := "[ ] off"
	if form.AutoRefresh {
		autoRefresh = "[x] on"
	}
	button := disabledBtn.Render(m.submitLabel())
	if m.canSubmit() {
		button = buttonStyle.Render(m.submitLabel())
	}
	if m.focus == focusSubmit {
		button = focusStyle.Render("> ") + button
	} else {
		button = "  " + button
	}

	return strings.Join([]string{
		headerStyle.UnsetPadding().Render("Sell Order"),
		line(focusMinQuantity, "Min Quantity", "$"+form.MinQuantity),
		line(focusMaxQuantity, "Max Quantity", "$"+form.MaxQuantity),
		line(focusPrice, "Offer Price", "$"+form.Price),
		line(focusAutoRefresh, "Auto-refresh", autoRefresh),
		"  " + labelStyle.Render("Leverage") + fmt.Sprintf("x%d", reporter.Leverage),
		"",
		button,
	}, "\n")
}

func (m Model) renderTabs() string {
	titles := reporter.TabTitles(reporter.Summarize(m.state.Cfds))
	rendered := make([]string, len(titles))
	for i, t := range titles {
		if i == m.tab {
			rendered[i] = activeTab.Render(t)
		} else {
			rendered[i] = inactiveTab.Render(t)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) tableCursor() int {
	if m.focus != focusTable {
		return -1
	}
	return m.cursor
}

func (m Model) renderPending() string {
	if len(m.state.PendingActions) == 0 {
		return ""
	}
	var parts []string
	for id, action := range m.state.PendingActions {
		parts = append(parts, fmt.Sprintf("%s %s", action, models.ShortID(id)))
	}
	return helpStyle.Render("in flight: " + strings.Join(parts, ", "))
}

func (m Model) renderNotifications() string {
	active := m.state.Active(m.now(), m.ttl)
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, 0, len(active))
	for _, n := range active {
		lines = append(lines, levelStyles[n.Level].Render(fmt.Sprintf("[%s] %s: %s", n.Level, n.Title, n.Message)))
	}
	return strings.Join(lines, "\n")
}
