package cart

import (
	"github.com/nikolayk812/repairshop-cart/internal/domain"
)

type EventType string

const (
	EventLoaded   EventType = "loaded"
	EventAdded    EventType = "added"
	EventRemoved  EventType = "removed"
	EventQuantity EventType = "quantity"
	EventCleared  EventType = "cleared"
)

// Event describes a change that was applied to the cart.
// SaveErr is set when the change could not be persisted; the change itself still holds.
// Observers of concurrent changes may see events out of order; Seq grows with
// every change, so an event with a Seq not above the last one seen is stale.
type Event struct {
	Seq    uint64
	Type   EventType
	Kind   domain.Kind
	ItemID domain.ItemID
	Name   string
	Count  int
	Total  domain.Money

	SaveErr error
}

// Message is the short text a view shows after an add, e.g. "RAM added to cart!".
func (e Event) Message() string {
	if e.Type != EventAdded {
		return ""
	}
	if e.Kind == domain.KindService {
		return e.Name + " service added to cart!"
	}
	return e.Name + " added to cart!"
}

type Observer func(Event)

type subscription struct {
	id int
	fn Observer
}
