package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// HealthChecker is the daemon liveness probe.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatusFunc receives a verdict whenever it differs from the previous one.
type StatusFunc func(online bool, err error)

// BackendMonitor polls the daemon and reports online/offline transitions.
// A probe that does not answer within timeout counts as offline.
type BackendMonitor struct {
	checker  HealthChecker
	interval time.Duration
	timeout  time.Duration
	report   StatusFunc
	logger   *zap.Logger

	known  bool
	online bool
}

func NewBackendMonitor(checker HealthChecker, interval, timeout time.Duration, report StatusFunc, logger *zap.Logger) *BackendMonitor {
	return &BackendMonitor{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		report:   report,
		logger:   logger,
	}
}

// Run probes immediately and then every interval until ctx is done.
func (m *BackendMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.probe(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *BackendMonitor) probe(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.checker.HealthCheck(checkCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	online := err == nil
	if m.known && online == m.online {
		return
	}
	m.known = true
	m.online = online

	if online {
		m.logger.Info("daemon is reachable")
	} else {
		m.logger.Warn("daemon is not reachable", zap.Error(err))
	}
	m.report(online, err)
}
