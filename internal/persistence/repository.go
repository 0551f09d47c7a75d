package persistence

import "maker-console/internal/models"

// StateRepository stores the dashboard state between runs.
type StateRepository interface {
	// SaveState atomically replaces the stored state.
	SaveState(state *models.DashboardState) error

	// LoadState returns the stored state, or (nil, nil) when nothing was saved yet.
	// A snapshot from another schema version yields ErrIncompatibleState.
	LoadState() (*models.DashboardState, error)

	Close() error
}
