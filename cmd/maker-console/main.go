package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"maker-console/internal/config"
	"maker-console/internal/console"
	"maker-console/internal/daemon"
	"maker-console/internal/feed"
	"maker-console/internal/logger"
	"maker-console/internal/models"
	"maker-console/internal/persistence"
	"maker-console/internal/reporter"
	"maker-console/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Flags ---
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "tui", "running mode: tui or report")
	flag.Parse()

	// --- Early logger, replaced once the config is loaded ---
	if _, err := logger.InitLogger(models.LogConfig{Level: "info", Output: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	// --- .env ---
	if err := godotenv.Load(); err != nil {
		logger.S().Info("No .env file found, reading the environment only.")
	} else {
		logger.S().Info("Loaded .env file.")
	}

	// --- JSON config ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("Failed to load config: %v", err)
	}

	if _, err := logger.InitLogger(cfg.LogConfig); err != nil {
		logger.S().Fatalf("Failed to init logger from config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "tui":
		err = runTUI(ctx, cfg)
	case "report":
		err = runReport(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode %q, use tui or report", *mode)
	}
	stop()
	_ = logger.S().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "maker-console: %v\n", err)
		os.Exit(1)
	}
}

func newApp(cfg *models.Config, repo persistence.StateRepository) (*console.App, error) {
	client := daemon.NewHTTPClient(cfg.DaemonURL, cfg.Username, cfg.Password, cfg.RequestTimeout(), logger.Named("daemon"))
	source := feed.NewClient(cfg.DaemonURL, cfg.Username, cfg.Password, cfg.FeedReconnectMin(), cfg.FeedReconnectMax(), logger.Named("feed"))
	return console.New(cfg, client, source, repo, logger.Named("console"))
}

// runTUI runs the interactive dashboard until the operator quits or a signal arrives.
func runTUI(ctx context.Context, cfg *models.Config) error {
	logger.S().Infof("Starting maker console against %s", cfg.DaemonURL)

	repo, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open state db %s: %w", cfg.DBPath, err)
	}
	defer repo.Close()

	app, err := newApp(cfg, repo)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sm := app.Dispatcher()
	updates, unsubscribe := app.Subscribe()
	defer unsubscribe()
	program := tea.NewProgram(tui.New(sm, sm.GetStateSnapshot(), cfg.NotificationTTL()), tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case s := <-updates:
				program.Send(tui.SnapshotMsg{State: s})
			case <-gctx.Done():
				program.Quit()
				return nil
			}
		}
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// runReport prints one dashboard snapshot and exits. It keeps its state in memory
// so it can run next to a TUI that holds the state db.
func runReport(ctx context.Context, cfg *models.Config) error {
	repo, err := persistence.NewInMemoryRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	app, err := newApp(cfg, repo)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	state := app.WaitForFeed(ctx, cfg.ReportWait())
	cancel()
	if err := <-done; err != nil {
		return err
	}
	return reporter.WriteReport(os.Stdout, state, cfg.OfferSpread)
}
