package cart

import (
	"log/slog"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// Keys names the two slots a cart is persisted under.
type Keys struct {
	Products string
	Services string
}

var DefaultKeys = Keys{
	Products: "shoppingCart",
	Services: "cartServices",
}

// Namespaced prefixes both keys so several carts can share one slot store.
func (k Keys) Namespaced(namespace string) Keys {
	if namespace == "" {
		return k
	}
	return Keys{
		Products: namespace + ":" + k.Products,
		Services: namespace + ":" + k.Services,
	}
}

type Option func(*Store)

func WithKeys(keys Keys) Option {
	return func(s *Store) {
		s.keys = keys
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithCurrency(unit currency.Unit) Option {
	return func(s *Store) {
		s.currency = unit
	}
}

func WithLocale(tag language.Tag) Option {
	return func(s *Store) {
		s.locale = tag
	}
}

func WithOwner(ownerID string) Option {
	return func(s *Store) {
		s.ownerID = ownerID
	}
}
