package feed

import (
	"encoding/json"
	"fmt"

	"maker-console/internal/models"
	"maker-console/internal/statemanager"
)

// Event names published by the maker daemon.
const (
	EventCfds   = "cfds"
	EventOrder  = "order"
	EventWallet = "wallet"
	EventQuote  = "quote"
)

// Normalize decodes a feed event into a state manager event. ok is false for
// event names the console does not consume.
func Normalize(ev Event) (event statemanager.NormalizedEvent, ok bool, err error) {
	var (
		t    statemanager.EventType
		data interface{}
	)
	switch ev.Name {
	case EventCfds:
		var cfds []models.Cfd
		if err := json.Unmarshal(ev.Data, &cfds); err != nil {
			return event, true, fmt.Errorf("decode %s: %w", ev.Name, err)
		}
		if cfds == nil {
			cfds = []models.Cfd{}
		}
		t, data = statemanager.CfdsEvent, cfds
	case EventOrder:
		var order *models.Order
		if err := json.Unmarshal(ev.Data, &order); err != nil {
			return event, true, fmt.Errorf("decode %s: %w", ev.Name, err)
		}
		t, data = statemanager.OrderEvent, order
	case EventWallet:
		var wallet models.WalletInfo
		if err := json.Unmarshal(ev.Data, &wallet); err != nil {
			return event, true, fmt.Errorf("decode %s: %w", ev.Name, err)
		}
		t, data = statemanager.WalletEvent, &wallet
	case EventQuote:
		var quote models.PriceInfo
		if err := json.Unmarshal(ev.Data, &quote); err != nil {
			return event, true, fmt.Errorf("decode %s: %w", ev.Name, err)
		}
		t, data = statemanager.QuoteEvent, &quote
	default:
		return event, false, nil
	}
	return statemanager.NewEvent(t, data), true, nil
}
