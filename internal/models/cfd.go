package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cfd is a contract-for-difference as the daemon publishes it on the "cfds" event.
type Cfd struct {
	OrderID                  uuid.UUID       `json:"order_id"`
	TradingPair              string          `json:"trading_pair"`
	Position                 Position        `json:"position"`
	InitialPrice             decimal.Decimal `json:"initial_price"`
	Leverage                 int             `json:"leverage"`
	LiquidationPrice         decimal.Decimal `json:"liquidation_price"`
	QuantityUSD              decimal.Decimal `json:"quantity_usd"`
	Margin                   decimal.Decimal `json:"margin"`
	ProfitBTC                decimal.Decimal `json:"profit_btc"`
	ProfitInPercent          decimal.Decimal `json:"profit_in_percent"`
	State                    StateKey        `json:"state"`
	StateTransitionTimestamp int64           `json:"state_transition_timestamp"`
	ExpiryTimestamp          int64           `json:"expiry_timestamp,omitempty"`
}

// StateKey is the lifecycle state of a CFD, using the daemon's wire names.
type StateKey string

const (
	OutgoingOrderRequest       StateKey = "OutgoingOrderRequest"
	IncomingOrderRequest       StateKey = "IncomingOrderRequest"
	Accepted                   StateKey = "Accepted"
	Rejected                   StateKey = "Rejected"
	ContractSetup              StateKey = "ContractSetup"
	PendingOpen                StateKey = "PendingOpen"
	Open                       StateKey = "Open"
	PendingCommit              StateKey = "PendingCommit"
	PendingCet                 StateKey = "PendingCet"
	PendingClose               StateKey = "PendingClose"
	OpenCommitted              StateKey = "OpenCommitted"
	IncomingSettlementProposal StateKey = "IncomingSettlementProposal"
	OutgoingSettlementProposal StateKey = "OutgoingSettlementProposal"
	IncomingRollOverProposal   StateKey = "IncomingRollOverProposal"
	OutgoingRollOverProposal   StateKey = "OutgoingRollOverProposal"
	MustRefund                 StateKey = "MustRefund"
	Refunded                   StateKey = "Refunded"
	SetupFailed                StateKey = "SetupFailed"
	Closed                     StateKey = "Closed"
)

// StateGroup buckets CFD states for display. Every known StateKey maps to exactly one group.
type StateGroup string

const (
	GroupPendingOrder      StateGroup = "PENDING_ORDER"
	GroupPendingSettlement StateGroup = "PENDING_SETTLEMENT"
	GroupPendingRollOver   StateGroup = "PENDING_ROLL_OVER"
	GroupOpening           StateGroup = "OPENING"
	GroupOpen              StateGroup = "OPEN"
	GroupClosed            StateGroup = "CLOSED"
)

// StateGroups lists the groups in the order the dashboard shows their tabs.
var StateGroups = []StateGroup{
	GroupOpen,
	GroupPendingOrder,
	GroupPendingSettlement,
	GroupPendingRollOver,
	GroupOpening,
	GroupClosed,
}

var stateGroups = map[StateKey]StateGroup{
	IncomingOrderRequest: GroupPendingOrder,

	OutgoingOrderRequest: GroupOpening,
	Accepted:             GroupOpening,
	ContractSetup:        GroupOpening,
	PendingOpen:          GroupOpening,

	Open:                       GroupOpen,
	PendingCommit:              GroupOpen,
	OpenCommitted:              GroupOpen,
	PendingCet:                 GroupOpen,
	PendingClose:               GroupOpen,
	OutgoingSettlementProposal: GroupOpen,
	OutgoingRollOverProposal:   GroupOpen,
	MustRefund:                 GroupOpen,

	IncomingSettlementProposal: GroupPendingSettlement,
	IncomingRollOverProposal:   GroupPendingRollOver,

	Rejected:    GroupClosed,
	Closed:      GroupClosed,
	SetupFailed: GroupClosed,
	Refunded:    GroupClosed,
}

// Valid reports whether the key is one the daemon is known to send.
func (k StateKey) Valid() bool {
	_, ok := stateGroups[k]
	return ok
}

// Group returns the display group of the state.
func (k StateKey) Group() StateGroup {
	return stateGroups[k]
}

// UnmarshalJSON rejects states outside the known set so that grouping stays total.
func (k *StateKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	key := StateKey(s)
	if !key.Valid() {
		return fmt.Errorf("unknown cfd state %q", s)
	}
	*k = key
	return nil
}

// Title is the tab caption of the group.
func (g StateGroup) Title() string {
	switch g {
	case GroupOpen:
		return "Open"
	case GroupPendingOrder:
		return "Pending Orders"
	case GroupPendingSettlement:
		return "Pending Settlements"
	case GroupPendingRollOver:
		return "Pending Roll Overs"
	case GroupOpening:
		return "Opening"
	case GroupClosed:
		return "Closed"
	}
	return string(g)
}

// GroupCfds partitions cfds by state group. Input order is kept within a group and
// every group is present in the result, possibly empty.
func GroupCfds(cfds []Cfd) map[StateGroup][]Cfd {
	groups := make(map[StateGroup][]Cfd, len(StateGroups))
	for _, g := range StateGroups {
		groups[g] = []Cfd{}
	}
	for _, cfd := range cfds {
		g := cfd.State.Group()
		groups[g] = append(groups[g], cfd)
	}
	return groups
}

// CfdAction is an operator decision on a CFD, named as in POST /api/cfd/{id}/{action}.
type CfdAction string

const (
	AcceptOrder      CfdAction = "accept-order"
	RejectOrder      CfdAction = "reject-order"
	AcceptSettlement CfdAction = "accept-settlement"
	RejectSettlement CfdAction = "reject-settlement"
	AcceptRollOver   CfdAction = "accept-roll-over"
	RejectRollOver   CfdAction = "reject-roll-over"
	Commit           CfdAction = "commit"
)

// AllowedFor reports whether the action makes sense for a CFD in the given state.
func (a CfdAction) AllowedFor(state StateKey) bool {
	switch a {
	case AcceptOrder, RejectOrder:
		return state == IncomingOrderRequest
	case AcceptSettlement, RejectSettlement:
		return state == IncomingSettlementProposal
	case AcceptRollOver, RejectRollOver:
		return state == IncomingRollOverProposal
	case Commit:
		return state == Open
	}
	return false
}

// AcceptActionFor returns the accept action matching the CFD's state, if any.
func AcceptActionFor(state StateKey) (CfdAction, bool) {
	switch state {
	case IncomingOrderRequest:
		return AcceptOrder, true
	case IncomingSettlementProposal:
		return AcceptSettlement, true
	case IncomingRollOverProposal:
		return AcceptRollOver, true
	}
	return "", false
}

// RejectActionFor returns the reject action matching the CFD's state, if any.
func RejectActionFor(state StateKey) (CfdAction, bool) {
	switch state {
	case IncomingOrderRequest:
		return RejectOrder, true
	case IncomingSettlementProposal:
		return RejectSettlement, true
	case IncomingRollOverProposal:
		return RejectRollOver, true
	}
	return "", false
}
