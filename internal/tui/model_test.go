package tui

import (
	"testing"
	"time"

	"maker-console/internal/models"
	"maker-console/internal/statemanager"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	events []statemanager.NormalizedEvent
}

func (d *recordingDispatcher) DispatchEvent(event statemanager.NormalizedEvent) {
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) types() []statemanager.EventType {
	var out []statemanager.EventType
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestModel(state *models.DashboardState) (Model, *recordingDispatcher) {
	d := &recordingDispatcher{}
	m := New(d, state, 5*time.Second)
	return m, d
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	tabKey   = tea.KeyMsg{Type: tea.KeyTab}
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
)

func formState(price string) *models.DashboardState {
	return &models.DashboardState{
		Form: models.OrderForm{MinQuantity: "10", MaxQuantity: "100", Price: price, AutoRefresh: true},
	}
}

func TestTypingDispatchesFieldEdits(t *testing.T) {
	m, d := newTestModel(formState("0"))

	m = press(t, m, runes("4"), runes("1x."), tea.KeyMsg{Type: tea.KeyBackspace})

	require.Len(t, d.events, 3)
	first := d.events[0].Data.(statemanager.FieldEditEventData)
	assert.Equal(t, models.PriceField, first.Field)
	assert.Equal(t, statemanager.EditAppend, first.Kind)
	assert.Equal(t, "4", first.Text)
	assert.Equal(t, "1.", d.events[1].Data.(statemanager.FieldEditEventData).Text)
	assert.Equal(t, statemanager.EditBackspace, d.events[2].Data.(statemanager.FieldEditEventData).Kind)
	assert.Equal(t, focusPrice, m.focus)
}

func TestFocusCyclesThroughForm(t *testing.T) {
	m, d := newTestModel(formState("0"))

	m = press(t, m, tabKey, tabKey, tabKey, tabKey)
	assert.Equal(t, focusMinQuantity, m.focus)

	m = press(t, m, runes("5"))
	require.Len(t, d.events, 1)
	assert.Equal(t, models.MinQuantityField, d.events[0].Data.(statemanager.FieldEditEventData).Field)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, focusTable, m.focus)
}

func TestSpaceTogglesAutoRefreshOnlyWhenFocused(t *testing.T) {
	m, d := newTestModel(formState("0"))
	space := tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

	m = press(t, m, space)
	assert.Empty(t, d.events)

	m = press(t, m, tabKey, space)
	assert.Equal(t, focusAutoRefresh, m.focus)
	assert.Equal(t, []statemanager.EventType{statemanager.ToggleAutoRefreshEvent}, d.types())
}

func TestSubmitButtonState(t *testing.T) {
	m, d := newTestModel(formState("0"))
	assert.False(t, m.canSubmit())
	assert.Equal(t, "Create Sell Order", m.submitLabel())
	press(t, m, enterKey)
	assert.Empty(t, d.events)

	m, d = newTestModel(formState("41410.00"))
	assert.True(t, m.canSubmit())
	press(t, m, enterKey)
	assert.Equal(t, []statemanager.EventType{statemanager.SubmitOrderEvent}, d.types())

	state := formState("41410.00")
	state.Order = &models.Order{ID: uuid.New()}
	m, _ = newTestModel(state)
	assert.Equal(t, "Update Sell Order", m.submitLabel())

	state.Submitting = true
	m, d = newTestModel(state)
	assert.False(t, m.canSubmit())
	press(t, m, enterKey)
	assert.Empty(t, d.events)
	assert.Contains(t, m.View(), "Submitting...")
}

func TestTableActions(t *testing.T) {
	pending := models.Cfd{OrderID: uuid.New(), State: models.IncomingOrderRequest}
	open := models.Cfd{OrderID: uuid.New(), State: models.Open}
	state := formState("0")
	state.Cfds = []models.Cfd{open, pending}

	m, d := newTestModel(state)
	m = press(t, m, tabKey, tabKey, tabKey)
	require.Equal(t, focusTable, m.focus)

	// Open tab first: commit the open CFD; accept has no meaning there.
	m = press(t, m, runes("a"), runes("c"))
	require.Len(t, d.events, 1)
	assert.Equal(t, statemanager.CfdActionEventData{OrderID: open.OrderID, Action: models.Commit}, d.events[0].Data)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, runes("r"))
	require.Len(t, d.events, 2)
	assert.Equal(t, statemanager.CfdActionEventData{OrderID: pending.OrderID, Action: models.RejectOrder}, d.events[1].Data)

	press(t, m, runes("a"))
	require.Len(t, d.events, 3)
	assert.Equal(t, models.AcceptOrder, d.events[2].Data.(statemanager.CfdActionEventData).Action)
}

func TestTabsWrapAndCursorClamps(t *testing.T) {
	state := formState("0")
	state.Cfds = []models.Cfd{
		{OrderID: uuid.New(), State: models.Open},
		{OrderID: uuid.New(), State: models.Open},
	}
	m, _ := newTestModel(state)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, len(models.StateGroups)-1, m.tab)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 0, m.tab)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)

	next, _ := m.Update(SnapshotMsg{State: &models.DashboardState{Cfds: state.Cfds[:1]}})
	assert.Equal(t, 0, next.(Model).cursor)
}

func TestViewShowsDashboard(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	state := formState("41410.00")
	state.Backend = models.BackendOffline
	state.Cfds = []models.Cfd{{OrderID: uuid.New(), State: models.IncomingSettlementProposal}}
	state.Notifications = []models.Notification{
		{ID: uuid.New(), Level: models.LevelError, Title: "Sell order failed", Message: "boom", CreatedAt: now.Add(-time.Second)},
		{ID: uuid.New(), Level: models.LevelInfo, Title: "Stale", Message: "old", CreatedAt: now.Add(-time.Minute)},
	}
	m, _ := newTestModel(state)
	m.now = func() time.Time { return now }

	view := m.View()

	assert.Contains(t, view, "$41410.00")
	assert.Contains(t, view, "x2")
	assert.Contains(t, view, "[x] on")
	assert.Contains(t, view, "Pending Settlements [1]")
	assert.Contains(t, view, "daemon: OFFLINE")
	assert.Contains(t, view, "Sell order failed: boom")
	assert.NotContains(t, view, "Stale")
}

func TestEscDismissesNotifications(t *testing.T) {
	m, d := newTestModel(formState("0"))
	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Len(t, d.events, 1)
	assert.Equal(t, statemanager.DismissNotificationEvent, d.events[0].Type)
	assert.Equal(t, uuid.Nil, d.events[0].Data)
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(formState("0"))
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
