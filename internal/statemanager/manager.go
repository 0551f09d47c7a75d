package statemanager

import (
	"strings"
	"sync"
	"time"

	"maker-console/internal/models"
	"maker-console/internal/persistence"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderPlacer issues the outbound commands. Implementations must not block: they
// report back by dispatching SubmitResultEvent / CfdActionResultEvent.
type OrderPlacer interface {
	PlaceSellOrder(payload models.CfdSellOrderPayload)
	ExecuteCfdAction(orderID uuid.UUID, action models.CfdAction)
}

// Options tunes the derivations the StateManager performs.
type Options struct {
	OfferSpread       float64 // Suggested offer price = ask * OfferSpread
	NotificationLimit int     // Oldest notifications are dropped beyond this
}

// StateManager is responsible for all state mutations and persistence.
// It ensures that all state changes are processed serially.
type StateManager struct {
	mu    sync.RWMutex
	state *models.DashboardState

	repo        persistence.StateRepository
	orderPlacer OrderPlacer
	opts        Options
	now         func() time.Time

	eventChannel    chan NormalizedEvent
	persistenceChan chan *models.DashboardState
	stopChan        chan struct{}
	stopOnce        sync.Once

	subMu       sync.Mutex
	subscribers []chan *models.DashboardState

	logger *zap.Logger
}

// NewStateManager creates a new StateManager. repo may be nil to disable persistence.
func NewStateManager(initialState *models.DashboardState, repo persistence.StateRepository, orderPlacer OrderPlacer, opts Options, logger *zap.Logger) *StateManager {
	if initialState == nil {
		initialState = &models.DashboardState{}
	}
	if initialState.PendingActions == nil {
		initialState.PendingActions = make(map[uuid.UUID]models.CfdAction)
	}
	if opts.OfferSpread <= 0 {
		opts.OfferSpread = 1.01
	}
	if opts.NotificationLimit <= 0 {
		opts.NotificationLimit = 5
	}
	return &StateManager{
		state:           initialState,
		repo:            repo,
		orderPlacer:     orderPlacer,
		opts:            opts,
		now:             time.Now,
		eventChannel:    make(chan NormalizedEvent, 1024),
		persistenceChan: make(chan *models.DashboardState, 1),
		stopChan:        make(chan struct{}),
		logger:          logger,
	}
}

// Start begins the state manager's event processing and persistence loops.
func (sm *StateManager) Start() {
	go sm.eventLoop()
	go sm.persistenceLoop()
	sm.logger.Sugar().Info("StateManager started.")
}

// Stop shuts down both loops. Events dispatched afterwards are dropped.
func (sm *StateManager) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
		sm.logger.Sugar().Info("StateManager stopped.")
	})
}

// DispatchEvent sends an event to the StateManager for processing.
func (sm *StateManager) DispatchEvent(event NormalizedEvent) {
	select {
	case sm.eventChannel <- event:
	case <-sm.stopChan:
	}
}

// Subscribe returns a channel that receives a snapshot after every processed
// event, and a func that removes it. Slow readers only ever see the latest snapshot.
func (sm *StateManager) Subscribe() (<-chan *models.DashboardState, func()) {
	ch := make(chan *models.DashboardState, 1)
	sm.subMu.Lock()
	sm.subscribers = append(sm.subscribers, ch)
	sm.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { sm.unsubscribe(ch) })
	}
}

func (sm *StateManager) unsubscribe(ch chan *models.DashboardState) {
	sm.subMu.Lock()
	defer sm.subMu.Unlock()
	for i, sub := range sm.subscribers {
		if sub == ch {
			sm.subscribers = append(sm.subscribers[:i], sm.subscribers[i+1:]...)
			return
		}
	}
}

func (sm *StateManager) subscriberCount() int {
	sm.subMu.Lock()
	defer sm.subMu.Unlock()
	return len(sm.subscribers)
}

// GetStateSnapshot returns a deep copy of the current state for safe, concurrent reading.
func (sm *StateManager) GetStateSnapshot() *models.DashboardState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return deepCopy(sm.state)
}

func deepCopy(s *models.DashboardState) *models.DashboardState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Cfds != nil {
		c.Cfds = make([]models.Cfd, len(s.Cfds))
		copy(c.Cfds, s.Cfds)
	}
	if s.Order != nil {
		o := *s.Order
		c.Order = &o
	}
	if s.Wallet != nil {
		w := *s.Wallet
		c.Wallet = &w
	}
	if s.Quote != nil {
		q := *s.Quote
		c.Quote = &q
	}
	c.PendingActions = make(map[uuid.UUID]models.CfdAction, len(s.PendingActions))
	for k, v := range s.PendingActions {
		c.PendingActions[k] = v
	}
	if s.Notifications != nil {
		c.Notifications = make([]models.Notification, len(s.Notifications))
		copy(c.Notifications, s.Notifications)
	}
	return &c
}

// eventLoop is the core processing loop that handles all incoming events serially.
func (sm *StateManager) eventLoop() {
	for {
		select {
		case event := <-sm.eventChannel:
			snapshot := sm.processEvent(event)
			sm.persist(snapshot)
			sm.publish(snapshot)
		case <-sm.stopChan:
			return
		}
	}
}

// persistenceLoop handles the asynchronous saving of state snapshots.
func (sm *StateManager) persistenceLoop() {
	for {
		select {
		case stateToSave := <-sm.persistenceChan:
			if sm.repo == nil {
				continue
			}
			if err := sm.repo.SaveState(stateToSave); err != nil {
				sm.logger.Sugar().Errorf("Failed to save dashboard state: %v", err)
			}
		case <-sm.stopChan:
			return
		}
	}
}

// persist and publish only keep the newest snapshot when a reader lags behind.
// Both are only called from the event loop, so drain-then-send cannot race.
func (sm *StateManager) persist(snapshot *models.DashboardState) {
	offerLatest(sm.persistenceChan, snapshot)
}

func (sm *StateManager) publish(snapshot *models.DashboardState) {
	sm.subMu.Lock()
	defer sm.subMu.Unlock()
	for _, ch := range sm.subscribers {
		offerLatest(ch, deepCopy(snapshot))
	}
}

func offerLatest(ch chan *models.DashboardState, s *models.DashboardState) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// processEvent mutates the state for one event and returns a snapshot of the result.
func (sm *StateManager) processEvent(event NormalizedEvent) *models.DashboardState {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch event.Type {
	case CfdsEvent:
		if cfds, ok := event.Data.([]models.Cfd); ok {
			if cfds == nil {
				cfds = []models.Cfd{}
			}
			sm.state.Cfds = cfds
		} else {
			sm.unexpected(event)
		}
	case OrderEvent:
		if order, ok := event.Data.(*models.Order); ok {
			sm.state.Order = order
		} else {
			sm.unexpected(event)
		}
	case WalletEvent:
		if wallet, ok := event.Data.(*models.WalletInfo); ok {
			sm.state.Wallet = wallet
		} else {
			sm.unexpected(event)
		}
	case QuoteEvent:
		if quote, ok := event.Data.(*models.PriceInfo); ok {
			sm.state.Quote = quote
			sm.refreshOfferPrice()
		} else {
			sm.unexpected(event)
		}
	case FieldEditEvent:
		if data, ok := event.Data.(FieldEditEventData); ok {
			sm.handleFieldEdit(data)
		} else {
			sm.unexpected(event)
		}
	case ToggleAutoRefreshEvent:
		sm.state.Form.AutoRefresh = !sm.state.Form.AutoRefresh
		sm.refreshOfferPrice()
	case SubmitOrderEvent:
		sm.handleSubmit()
	case SubmitResultEvent:
		if data, ok := event.Data.(SubmitResultEventData); ok {
			sm.handleSubmitResult(data)
		} else {
			sm.unexpected(event)
		}
	case CfdActionEvent:
		if data, ok := event.Data.(CfdActionEventData); ok {
			sm.handleCfdAction(data)
		} else {
			sm.unexpected(event)
		}
	case CfdActionResultEvent:
		if data, ok := event.Data.(CfdActionResultEventData); ok {
			sm.handleCfdActionResult(data)
		} else {
			sm.unexpected(event)
		}
	case BackendStatusEvent:
		if data, ok := event.Data.(BackendStatusEventData); ok {
			sm.handleBackendStatus(data)
		} else {
			sm.unexpected(event)
		}
	case DismissNotificationEvent:
		if id, ok := event.Data.(uuid.UUID); ok {
			sm.dismiss(id)
		} else {
			sm.unexpected(event)
		}
	case StateResetEvent:
		if newState, ok := event.Data.(*models.DashboardState); ok && newState != nil {
			sm.state = deepCopy(newState)
			sm.logger.Sugar().Info("State has been reset.")
		} else {
			sm.unexpected(event)
		}
	default:
		sm.unexpected(event)
	}

	sm.state.LastUpdateTime = sm.now()
	return deepCopy(sm.state)
}

func (sm *StateManager) unexpected(event NormalizedEvent) {
	sm.logger.Sugar().Warnf("Received %s event with unexpected data type: %T", event.Type, event.Data)
}

// refreshOfferPrice makes the offer price follow the ask while auto-refresh is on.
func (sm *StateManager) refreshOfferPrice() {
	if !sm.state.Form.AutoRefresh || sm.state.Quote == nil {
		return
	}
	sm.state.Form.Price = models.SuggestOfferPrice(sm.state.Quote.Ask, sm.opts.OfferSpread).StringFixed(2)
}

func (sm *StateManager) handleFieldEdit(data FieldEditEventData) {
	var field *string
	switch data.Field {
	case models.MinQuantityField:
		field = &sm.state.Form.MinQuantity
	case models.MaxQuantityField:
		field = &sm.state.Form.MaxQuantity
	case models.PriceField:
		field = &sm.state.Form.Price
	default:
		sm.logger.Sugar().Warnf("Edit for unknown form field %d", data.Field)
		return
	}

	before := *field
	switch data.Kind {
	case EditAppend:
		*field = sanitizeNumber(before + data.Text)
	case EditBackspace:
		if r := []rune(before); len(r) > 0 {
			*field = string(r[:len(r)-1])
		}
	case EditReplace:
		*field = sanitizeNumber(data.Text)
	}

	// Any manual price edit wins over the live quote until auto-refresh is re-enabled.
	if data.Field == models.PriceField && sm.state.Form.AutoRefresh {
		sm.state.Form.AutoRefresh = false
		sm.logger.Debug("auto-refresh disabled by manual price edit")
	}
}

// sanitizeNumber keeps the digits and the first decimal point of s, after
// stripping the "$" the form displays in front of amounts.
func sanitizeNumber(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	var b strings.Builder
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dot:
			dot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (sm *StateManager) handleSubmit() {
	if sm.state.Submitting {
		sm.logger.Debug("sell order already in flight, ignoring submit")
		return
	}
	payload, err := sm.state.Form.SellOrderPayload()
	if err != nil {
		sm.notify(models.LevelWarning, "Invalid sell order", err.Error())
		return
	}
	sm.state.Submitting = true
	sm.logger.Info("submitting sell order",
		zap.Float64("price", payload.Price),
		zap.Float64("min_quantity", payload.MinQuantity),
		zap.Float64("max_quantity", payload.MaxQuantity))
	sm.orderPlacer.PlaceSellOrder(payload)
}

func (sm *StateManager) handleSubmitResult(data SubmitResultEventData) {
	sm.state.Submitting = false
	if data.Err != nil {
		sm.logger.Warn("sell order failed", zap.Error(data.Err))
		sm.notify(models.LevelError, "Sell order failed", data.Err.Error())
		return
	}
	sm.logger.Info("sell order accepted by daemon")
}

func (sm *StateManager) handleCfdAction(data CfdActionEventData) {
	var cfd *models.Cfd
	for i := range sm.state.Cfds {
		if sm.state.Cfds[i].OrderID == data.OrderID {
			cfd = &sm.state.Cfds[i]
			break
		}
	}
	if cfd == nil {
		sm.notify(models.LevelWarning, "Unknown CFD", data.OrderID.String())
		return
	}
	if !data.Action.AllowedFor(cfd.State) {
		sm.notify(models.LevelWarning, "Action not available",
			string(data.Action)+" is not possible while the CFD is "+string(cfd.State))
		return
	}
	if pending, ok := sm.state.PendingActions[data.OrderID]; ok {
		sm.logger.Debug("cfd action already in flight",
			zap.Stringer("order_id", data.OrderID), zap.String("pending", string(pending)))
		return
	}
	sm.state.PendingActions[data.OrderID] = data.Action
	sm.orderPlacer.ExecuteCfdAction(data.OrderID, data.Action)
}

func (sm *StateManager) handleCfdActionResult(data CfdActionResultEventData) {
	delete(sm.state.PendingActions, data.OrderID)
	if data.Err != nil {
		sm.logger.Warn("cfd action failed",
			zap.Stringer("order_id", data.OrderID), zap.String("action", string(data.Action)), zap.Error(data.Err))
		sm.notify(models.LevelError, "CFD "+string(data.Action)+" failed", data.Err.Error())
	}
}

func (sm *StateManager) handleBackendStatus(data BackendStatusEventData) {
	prev := sm.state.Backend
	if data.Online {
		sm.state.Backend = models.BackendOnline
		if prev == models.BackendOffline {
			sm.notify(models.LevelInfo, "Daemon reachable", "connection to the maker daemon restored")
		}
		return
	}
	sm.state.Backend = models.BackendOffline
	if prev != models.BackendOffline {
		msg := "no signal from the maker daemon"
		if data.Err != nil {
			msg = data.Err.Error()
		}
		sm.notify(models.LevelError, "Daemon not reachable", msg)
	}
}

func (sm *StateManager) notify(level models.NotificationLevel, title, message string) {
	sm.state.Notifications = append(sm.state.Notifications, models.Notification{
		ID:        uuid.New(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: sm.now(),
	})
	if extra := len(sm.state.Notifications) - sm.opts.NotificationLimit; extra > 0 {
		sm.state.Notifications = append([]models.Notification(nil), sm.state.Notifications[extra:]...)
	}
}

func (sm *StateManager) dismiss(id uuid.UUID) {
	if id == uuid.Nil {
		sm.state.Notifications = nil
		return
	}
	kept := sm.state.Notifications[:0]
	for _, n := range sm.state.Notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	sm.state.Notifications = kept
}
