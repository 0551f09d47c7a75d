package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"maker-console/internal/daemon"
	"maker-console/internal/feed"
	"maker-console/internal/models"
	"maker-console/internal/monitor"
	"maker-console/internal/persistence"
	"maker-console/internal/statemanager"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FeedSource is the inbound event stream; *feed.Client implements it.
type FeedSource interface {
	Run(ctx context.Context, handle feed.Handler) error
}

// App wires the feed, the liveness monitor and the outbound commands around one
// StateManager. It is the StateManager's OrderPlacer.
type App struct {
	cfg     *models.Config
	daemon  daemon.Client
	feed    FeedSource
	repo    persistence.StateRepository
	sm      *statemanager.StateManager
	monitor *monitor.BackendMonitor
	logger  *zap.Logger

	mu       sync.Mutex
	closing  bool
	commands sync.WaitGroup
}

// InitialState is the dashboard before any feed data arrived: default quantities,
// a zero price and auto-refresh on.
func InitialState(cfg *models.Config) *models.DashboardState {
	return &models.DashboardState{
		Form: models.OrderForm{
			MinQuantity: cfg.DefaultMinQuantity,
			MaxQuantity: cfg.DefaultMaxQuantity,
			Price:       "0",
			AutoRefresh: true,
		},
	}
}

// New builds the app. The last saved state, if any, seeds the dashboard.
// repo may be nil to run without persistence.
func New(cfg *models.Config, client daemon.Client, source FeedSource, repo persistence.StateRepository, logger *zap.Logger) (*App, error) {
	initial := InitialState(cfg)
	if repo != nil {
		saved, err := repo.LoadState()
		switch {
		case errors.Is(err, persistence.ErrIncompatibleState):
			logger.Warn("ignoring saved dashboard state", zap.Error(err))
		case err != nil:
			return nil, fmt.Errorf("load saved state: %w", err)
		case saved != nil:
			logger.Info("restored saved dashboard state",
				zap.Int("cfds", len(saved.Cfds)), zap.Time("last_update", saved.LastUpdateTime))
			initial = saved
		}
	}

	a := &App{
		cfg:    cfg,
		daemon: client,
		feed:   source,
		repo:   repo,
		logger: logger,
	}
	a.sm = statemanager.NewStateManager(initial, repo, a, statemanager.Options{
		OfferSpread:       cfg.OfferSpread,
		NotificationLimit: cfg.NotificationLimit,
	}, logger.Named("state"))
	a.monitor = monitor.NewBackendMonitor(client, cfg.HealthCheckInterval(), cfg.BackendTimeout(), a.reportBackend, logger.Named("monitor"))
	return a, nil
}

// Dispatcher is where operator input goes.
func (a *App) Dispatcher() *statemanager.StateManager {
	return a.sm
}

// Subscribe returns a channel of state snapshots, one per processed event, and
// the func that ends the subscription.
func (a *App) Subscribe() (<-chan *models.DashboardState, func()) {
	return a.sm.Subscribe()
}

// Run processes events until ctx is cancelled. In-flight commands are awaited and
// the final state is saved before it returns.
func (a *App) Run(ctx context.Context) error {
	a.sm.Start()
	a.logger.Info("maker console started", zap.String("daemon", a.cfg.DaemonURL))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.feed.Run(gctx, a.handleFeedEvent)
	})
	g.Go(func() error {
		return a.monitor.Run(gctx)
	})
	err := g.Wait()

	a.mu.Lock()
	a.closing = true
	a.mu.Unlock()
	a.commands.Wait()
	a.sm.Stop()
	if a.repo != nil {
		if saveErr := a.repo.SaveState(a.sm.GetStateSnapshot()); saveErr != nil {
			a.logger.Error("failed to save final state", zap.Error(saveErr))
		}
	}
	a.logger.Info("maker console stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// WaitForFeed blocks until every feed entity has been seen or timeout expires, and
// returns the latest snapshot either way.
func (a *App) WaitForFeed(ctx context.Context, timeout time.Duration) *models.DashboardState {
	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()
	latest := a.sm.GetStateSnapshot()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for !latest.FeedComplete() {
		select {
		case s := <-updates:
			latest = s
		case <-deadline.C:
			a.logger.Warn("feed incomplete, reporting what arrived", zap.Duration("waited", timeout))
			return latest
		case <-ctx.Done():
			return latest
		}
	}
	return latest
}

func (a *App) handleFeedEvent(ev feed.Event) {
	event, ok, err := feed.Normalize(ev)
	if err != nil {
		a.logger.Warn("dropping undecodable feed event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	if !ok {
		a.logger.Debug("ignoring feed event", zap.String("event", ev.Name))
		return
	}
	a.sm.DispatchEvent(event)
}

func (a *App) reportBackend(online bool, err error) {
	a.sm.DispatchEvent(statemanager.NewEvent(statemanager.BackendStatusEvent,
		statemanager.BackendStatusEventData{Online: online, Err: err}))
}

// track registers a background command unless the app is shutting down.
func (a *App) track(what string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closing {
		a.logger.Warn("shutting down, command not sent", zap.String("command", what))
		return false
	}
	a.commands.Add(1)
	return true
}

// PlaceSellOrder posts the order in the background and reports the outcome.
func (a *App) PlaceSellOrder(payload models.CfdSellOrderPayload) {
	if !a.track("sell order") {
		return
	}
	go func() {
		defer a.commands.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout())
		defer cancel()

		err := a.daemon.PostSellOrder(ctx, payload)
		a.sm.DispatchEvent(statemanager.NewEvent(statemanager.SubmitResultEvent,
			statemanager.SubmitResultEventData{Err: err}))
	}()
}

// ExecuteCfdAction posts the decision in the background and reports the outcome.
func (a *App) ExecuteCfdAction(orderID uuid.UUID, action models.CfdAction) {
	if !a.track(string(action)) {
		return
	}
	go func() {
		defer a.commands.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout())
		defer cancel()

		err := a.daemon.PostCfdAction(ctx, orderID, action)
		a.sm.DispatchEvent(statemanager.NewEvent(statemanager.CfdActionResultEvent,
			statemanager.CfdActionResultEventData{OrderID: orderID, Action: action, Err: err}))
	}()
}
