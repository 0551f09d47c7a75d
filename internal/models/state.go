package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardState is everything the console shows. It is owned by the state manager;
// everyone else works on deep copies.
type DashboardState struct {
	Cfds   []Cfd       `json:"cfds"`   // Latest "cfds" event, nil until the first one
	Order  *Order      `json:"order"`  // Latest "order" event, nil when the maker has no order
	Wallet *WalletInfo `json:"wallet"` // Latest "wallet" event
	Quote  *PriceInfo  `json:"quote"`  // Latest "quote" event

	Form OrderForm `json:"form"`

	// Transient, never persisted.
	Submitting     bool                    `json:"-"`
	PendingActions map[uuid.UUID]CfdAction `json:"-"`
	Backend        BackendStatus           `json:"-"`
	Notifications  []Notification          `json:"-"`

	LastUpdateTime time.Time `json:"last_update_time"`
}

// OrderForm holds the text of the sell order inputs as the operator sees them.
type OrderForm struct {
	MinQuantity string `json:"min_quantity"`
	MaxQuantity string `json:"max_quantity"`
	Price       string `json:"price"`
	AutoRefresh bool   `json:"auto_refresh"` // Offer price follows the live ask while set
}

// FormField names an input of the order form.
type FormField int

const (
	MinQuantityField FormField = iota
	MaxQuantityField
	PriceField
)

func (f FormField) String() string {
	switch f {
	case MinQuantityField:
		return "min_quantity"
	case MaxQuantityField:
		return "max_quantity"
	case PriceField:
		return "price"
	}
	return "unknown"
}

// BackendStatus is what the liveness monitor last concluded about the daemon.
type BackendStatus string

const (
	BackendUnknown BackendStatus = ""
	BackendOnline  BackendStatus = "online"
	BackendOffline BackendStatus = "offline"
)

// NotificationLevel is the severity of a toast.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient, user-visible message.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

// FeedComplete reports whether every feed entity has been seen at least once.
// The order is allowed to be absent.
func (s *DashboardState) FeedComplete() bool {
	return s.Cfds != nil && s.Wallet != nil && s.Quote != nil
}

// Active returns the notifications younger than ttl.
func (s *DashboardState) Active(now time.Time, ttl time.Duration) []Notification {
	var active []Notification
	for _, n := range s.Notifications {
		if now.Sub(n.CreatedAt) < ttl {
			active = append(active, n)
		}
	}
	return active
}

// SellOrderPayload parses the form into the sell order command. Every field must be
// a positive number and the min quantity must not exceed the max quantity.
func (f OrderForm) SellOrderPayload() (CfdSellOrderPayload, error) {
	price, err := parsePositive("offer price", f.Price)
	if err != nil {
		return CfdSellOrderPayload{}, err
	}
	minQty, err := parsePositive("min quantity", f.MinQuantity)
	if err != nil {
		return CfdSellOrderPayload{}, err
	}
	maxQty, err := parsePositive("max quantity", f.MaxQuantity)
	if err != nil {
		return CfdSellOrderPayload{}, err
	}
	if minQty.GreaterThan(maxQty) {
		return CfdSellOrderPayload{}, errors.New("min quantity is above max quantity")
	}
	return CfdSellOrderPayload{
		Price:       price.InexactFloat64(),
		MinQuantity: minQty.InexactFloat64(),
		MaxQuantity: maxQty.InexactFloat64(),
	}, nil
}

func parsePositive(name, text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a number", name, text)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be above zero", name)
	}
	return d, nil
}
