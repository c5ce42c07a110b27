// Package cart keeps the selected spare parts and services of one shopper,
// mirrors them into a key-value slot store and derives totals and the
// inquiry text from them.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/nikolayk812/repairshop-cart/internal/domain"
	"github.com/nikolayk812/repairshop-cart/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// MaxQuantity bounds the quantity of a single line.
const MaxQuantity = 100_000

// Store owns the cart state. All methods are safe for concurrent use; mutations
// are applied one at a time in call order and written through to the slot
// store before the method returns.
type Store struct {
	slots    port.SlotStore
	keys     Keys
	logger   *slog.Logger
	currency currency.Unit
	locale   language.Tag
	ownerID  string

	mu    sync.Mutex
	items []domain.LineItem
	seq   uint64

	obsMu     sync.Mutex
	observers []subscription
	nextObsID int
}

func New(slots port.SlotStore, opts ...Option) *Store {
	s := &Store{
		slots:    slots,
		keys:     DefaultKeys,
		logger:   slog.Default(),
		currency: currency.INR,
		locale:   language.English,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Initialize replaces the in-memory state with what the slot store holds.
// A slot that is missing or cannot be decoded yields an empty collection for
// its kind only.
func (s *Store) Initialize(ctx context.Context) {
	var loaded []domain.LineItem
	for _, kind := range domain.Kinds {
		loaded = append(loaded, s.load(ctx, kind)...)
	}

	s.mu.Lock()
	s.items = loaded
	ev := s.eventLocked(EventLoaded, domain.KindProduct, "", "")
	s.mu.Unlock()

	s.notify(ev)
}

func (s *Store) AddProduct(ctx context.Context, item domain.LineItem, quantity int) error {
	return s.Add(ctx, domain.KindProduct, item, quantity)
}

func (s *Store) AddService(ctx context.Context, item domain.LineItem, quantity int) error {
	return s.Add(ctx, domain.KindService, item, quantity)
}

// Add puts quantity units of item into the collection of the given kind. Adding an
// id that is already present increases its quantity. Invalid input is rejected
// without touching the cart.
func (s *Store) Add(ctx context.Context, kind domain.Kind, item domain.LineItem, quantity int) error {
	if !validKind(kind) {
		return fmt.Errorf("kind[%d]: %w", int(kind), ErrInvalidKind)
	}
	if item.ID == "" {
		return ErrMissingID
	}
	if quantity < 1 || quantity > MaxQuantity {
		return fmt.Errorf("quantity[%d]: %w", quantity, ErrInvalidQuantity)
	}

	s.mu.Lock()
	if i := s.indexLocked(kind, item.ID); i >= 0 {
		if s.items[i].Quantity > MaxQuantity-quantity {
			s.mu.Unlock()
			return fmt.Errorf("quantity[%d+%d]: %w", s.items[i].Quantity, quantity, ErrInvalidQuantity)
		}
		s.items[i].Quantity += quantity
	} else {
		line := item.Clone()
		line.Kind = kind
		line.Quantity = quantity
		if line.UnitPrice.IsNegative() {
			s.logger.WarnContext(ctx, "negative unit price coerced to zero",
				slog.String("kind", kind.String()), slog.String("id", item.ID.String()))
			line.UnitPrice = decimal.Zero
		}
		s.items = append(s.items, line)
	}
	saveErr := s.persistLocked(ctx, kind)
	ev := s.eventLocked(EventAdded, kind, item.ID, item.Name)
	ev.SaveErr = saveErr
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

func (s *Store) RemoveProduct(ctx context.Context, id domain.ItemID) {
	s.Remove(ctx, domain.KindProduct, id)
}

func (s *Store) RemoveService(ctx context.Context, id domain.ItemID) {
	s.Remove(ctx, domain.KindService, id)
}

// Remove deletes the line; an unknown id is ignored.
func (s *Store) Remove(ctx context.Context, kind domain.Kind, id domain.ItemID) {
	s.mu.Lock()
	i := s.indexLocked(kind, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}

	name := s.items[i].Name
	s.items = slices.Delete(s.items, i, i+1)
	saveErr := s.persistLocked(ctx, kind)
	ev := s.eventLocked(EventRemoved, kind, id, name)
	ev.SaveErr = saveErr
	s.mu.Unlock()

	s.notify(ev)
}

// SetQuantity sets the quantity of an existing line, clamped to [1, MaxQuantity].
// It never removes a line; an unknown id is ignored.
func (s *Store) SetQuantity(ctx context.Context, id domain.ItemID, kind domain.Kind, quantity int) {
	quantity = clampQuantity(quantity)

	s.mu.Lock()
	i := s.indexLocked(kind, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}

	s.items[i].Quantity = quantity
	saveErr := s.persistLocked(ctx, kind)
	ev := s.eventLocked(EventQuantity, kind, id, s.items[i].Name)
	ev.SaveErr = saveErr
	s.mu.Unlock()

	s.notify(ev)
}

func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	saveErr := s.persistLocked(ctx, domain.Kinds...)
	ev := s.eventLocked(EventCleared, domain.KindProduct, "", "")
	ev.SaveErr = saveErr
	s.mu.Unlock()

	s.notify(ev)
}

func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.countLocked()
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.totalLocked()
}

// Total is TotalPrice in the cart's currency.
func (s *Store) Total() domain.Money {
	return domain.Money{Amount: s.TotalPrice(), Currency: s.currency}
}

// Items returns a copy of one collection in insertion order.
func (s *Store) Items(kind domain.Kind) []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.itemsLocked(kind)
}

func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Cart{
		OwnerID:  s.ownerID,
		Products: s.itemsLocked(domain.KindProduct),
		Services: s.itemsLocked(domain.KindService),
	}
}

func (s *Store) Currency() currency.Unit {
	return s.currency
}

// Locale is the language amounts are formatted for.
func (s *Store) Locale() language.Tag {
	return s.locale
}

// Subscribe registers fn to be called after every change. The returned func
// removes the registration and may be called more than once.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			defer s.obsMu.Unlock()

			s.observers = slices.DeleteFunc(s.observers, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

func (s *Store) notify(ev Event) {
	s.obsMu.Lock()
	observers := slices.Clone(s.observers)
	s.obsMu.Unlock()

	for _, sub := range observers {
		sub.fn(ev)
	}
}

func (s *Store) load(ctx context.Context, kind domain.Kind) []domain.LineItem {
	key := s.key(kind)

	data, err := s.slots.Load(ctx, key)
	if errors.Is(err, port.ErrSlotNotFound) {
		return nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "cart slot load failed, starting empty",
			slog.String("key", key), slog.Any("error", err))
		return nil
	}

	var stored []domain.LineItem
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.WarnContext(ctx, "cart slot is corrupted, starting empty",
			slog.String("key", key), slog.Any("error", err))
		return nil
	}

	items := make([]domain.LineItem, 0, len(stored))
	for _, item := range stored {
		if item.ID == "" {
			s.logger.WarnContext(ctx, "dropping stored line without id", slog.String("key", key))
			continue
		}

		item.Kind = kind
		item.Quantity = clampQuantity(item.Quantity)
		if item.UnitPrice.IsNegative() {
			item.UnitPrice = decimal.Zero
		}

		// fold duplicates left by older clients into the first occurrence
		if i := slices.IndexFunc(items, func(li domain.LineItem) bool { return li.ID == item.ID }); i >= 0 {
			items[i].Quantity = clampQuantity(items[i].Quantity + item.Quantity)
			continue
		}
		items = append(items, item)
	}

	return items
}

func (s *Store) persistLocked(ctx context.Context, kinds ...domain.Kind) error {
	values := make(map[string][]byte, len(kinds))
	for _, kind := range kinds {
		data, err := json.Marshal(s.itemsLocked(kind))
		if err != nil {
			return s.saveFailed(ctx, fmt.Errorf("json.Marshal: %w", err))
		}
		values[s.key(kind)] = data
	}

	if batch, ok := s.slots.(port.BatchSlotStore); ok && len(values) > 1 {
		if err := batch.SaveAll(ctx, values); err != nil {
			return s.saveFailed(ctx, fmt.Errorf("slots.SaveAll: %w", err))
		}
		return nil
	}

	var errs []error
	for _, kind := range kinds {
		key := s.key(kind)
		if err := s.slots.Save(ctx, key, values[key]); err != nil {
			errs = append(errs, fmt.Errorf("slots.Save[%s]: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return s.saveFailed(ctx, err)
	}

	return nil
}

func (s *Store) saveFailed(ctx context.Context, err error) error {
	s.logger.WarnContext(ctx, "cart save failed, keeping in-memory state",
		slog.String("owner", s.ownerID), slog.Any("error", err))
	return err
}

func (s *Store) eventLocked(typ EventType, kind domain.Kind, id domain.ItemID, name string) Event {
	s.seq++
	return Event{
		Seq:    s.seq,
		Type:   typ,
		Kind:   kind,
		ItemID: id,
		Name:   name,
		Count:  s.countLocked(),
		Total:  domain.Money{Amount: s.totalLocked(), Currency: s.currency},
	}
}

func (s *Store) indexLocked(kind domain.Kind, id domain.ItemID) int {
	return slices.IndexFunc(s.items, func(li domain.LineItem) bool {
		return li.Kind == kind && li.ID == id
	})
}

func (s *Store) itemsLocked(kind domain.Kind) []domain.LineItem {
	items := make([]domain.LineItem, 0)
	for _, li := range s.items {
		if li.Kind == kind {
			items = append(items, li.Clone())
		}
	}
	return items
}

func (s *Store) countLocked() int {
	var count int
	for _, li := range s.items {
		count += li.Quantity
	}
	return count
}

func (s *Store) totalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.items {
		total = total.Add(li.Total())
	}
	return total
}

func (s *Store) key(kind domain.Kind) string {
	if kind == domain.KindService {
		return s.keys.Services
	}
	return s.keys.Products
}

func clampQuantity(q int) int {
	return min(MaxQuantity, max(1, q))
}

func validKind(kind domain.Kind) bool {
	return slices.Contains(domain.Kinds, kind)
}
