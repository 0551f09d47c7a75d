package statemanager

import (
	"time"

	"maker-console/internal/models"

	"github.com/google/uuid"
)

// EventType defines the type of a normalized event
type EventType int

const (
	// Feed snapshots, last value wins.
	CfdsEvent EventType = iota
	OrderEvent
	WalletEvent
	QuoteEvent

	// Operator input.
	FieldEditEvent
	ToggleAutoRefreshEvent
	SubmitOrderEvent
	CfdActionEvent
	DismissNotificationEvent

	// Completions and monitors.
	SubmitResultEvent
	CfdActionResultEvent
	BackendStatusEvent

	StateResetEvent
)

func (t EventType) String() string {
	switch t {
	case CfdsEvent:
		return "cfds"
	case OrderEvent:
		return "order"
	case WalletEvent:
		return "wallet"
	case QuoteEvent:
		return "quote"
	case FieldEditEvent:
		return "field_edit"
	case ToggleAutoRefreshEvent:
		return "toggle_auto_refresh"
	case SubmitOrderEvent:
		return "submit_order"
	case CfdActionEvent:
		return "cfd_action"
	case DismissNotificationEvent:
		return "dismiss_notification"
	case SubmitResultEvent:
		return "submit_result"
	case CfdActionResultEvent:
		return "cfd_action_result"
	case BackendStatusEvent:
		return "backend_status"
	case StateResetEvent:
		return "state_reset"
	}
	return "unknown"
}

// NormalizedEvent is a standardized internal representation of an event.
//
// Data by type:
//
//	CfdsEvent                []models.Cfd
//	OrderEvent               *models.Order (nil: no active order)
//	WalletEvent              *models.WalletInfo
//	QuoteEvent               *models.PriceInfo
//	FieldEditEvent           FieldEditEventData
//	ToggleAutoRefreshEvent   nil
//	SubmitOrderEvent         nil
//	CfdActionEvent           CfdActionEventData
//	DismissNotificationEvent uuid.UUID (uuid.Nil: all)
//	SubmitResultEvent        SubmitResultEventData
//	CfdActionResultEvent     CfdActionResultEventData
//	BackendStatusEvent       BackendStatusEventData
//	StateResetEvent          *models.DashboardState
type NormalizedEvent struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, data interface{}) NormalizedEvent {
	return NormalizedEvent{Type: t, Timestamp: time.Now(), Data: data}
}

// EditKind is how a FieldEditEvent changes the field text.
type EditKind int

const (
	EditAppend EditKind = iota
	EditBackspace
	EditReplace
)

// FieldEditEventData is a single operator edit of an order form input.
type FieldEditEventData struct {
	Field models.FormField
	Kind  EditKind
	Text  string // Ignored for EditBackspace
}

// CfdActionEventData asks for an operator decision on a CFD.
type CfdActionEventData struct {
	OrderID uuid.UUID
	Action  models.CfdAction
}

// SubmitResultEventData reports the outcome of a sell order request.
type SubmitResultEventData struct {
	Err error
}

// CfdActionResultEventData reports the outcome of a CFD action request.
type CfdActionResultEventData struct {
	OrderID uuid.UUID
	Action  models.CfdAction
	Err     error
}

// BackendStatusEventData is a liveness verdict from the monitor.
type BackendStatusEventData struct {
	Online bool
	Err    error
}
