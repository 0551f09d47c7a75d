package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"maker-console/internal/models"

	"github.com/dgraph-io/badger/v3"
)

var (
	dashboardStateKey   = []byte("dashboard_state")
	schemaVersionKey    = []byte("dashboard_state_schema")
	schemaVersion       = []byte("1")
	errEmptyStoredState = errors.New("dashboard state is empty in database")
)

// ErrIncompatibleState is returned by LoadState when the stored snapshot was
// written with another schema version.
var ErrIncompatibleState = errors.New("stored dashboard state has an incompatible schema")

type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) a Badger database at dbPath.
func NewBadgerRepository(dbPath string) (StateRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger logs to stderr, which would scribble over the TUI.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dbPath, err)
	}
	return &badgerRepository{db: db}, nil
}

// NewInMemoryRepository is a Badger repository without a backing directory.
func NewInMemoryRepository() (StateRepository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &badgerRepository{db: db}, nil
}

func (r *badgerRepository) SaveState(state *models.DashboardState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal dashboard state: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(schemaVersionKey, schemaVersion); err != nil {
			return err
		}
		return txn.Set(dashboardStateKey, data)
	})
}

func (r *badgerRepository) LoadState() (*models.DashboardState, error) {
	var state models.DashboardState

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dashboardStateKey)
		if err != nil {
			return err
		}
		if err := checkSchema(txn); err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errEmptyStoredState
			}
			return json.Unmarshal(val, &state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *badgerRepository) Close() error {
	return r.db.Close()
}

// checkSchema fails when the snapshot carries no version or a different one.
func checkSchema(txn *badger.Txn) error {
	item, err := txn.Get(schemaVersionKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: no schema version stored", ErrIncompatibleState)
	}
	if err != nil {
		return err
	}
	stored, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if !bytes.Equal(stored, schemaVersion) {
		return fmt.Errorf("%w: stored %q, want %q", ErrIncompatibleState, stored, schemaVersion)
	}
	return nil
}
