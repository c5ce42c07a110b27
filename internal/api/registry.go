package api

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/nikolayk812/repairshop-cart/internal/cart"
	"github.com/nikolayk812/repairshop-cart/internal/port"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

const DefaultMaxIdleSessions = 10_000

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type RegistryConfig struct {
	Keys     cart.Keys
	Currency currency.Unit
	Locale   language.Tag

	// MaxIdleSessions bounds the stores kept while no request uses them.
	// The least recently used one is dropped first; it is reloaded from the
	// slot store on its next use.
	MaxIdleSessions int
}

// Registry hands out one cart.Store per shopper session. A store is pinned
// while a request or event stream holds it and only idle stores are evicted,
// so a session never has two live stores.
type Registry struct {
	slots  port.SlotStore
	cfg    RegistryConfig
	logger *slog.Logger

	mu     sync.Mutex
	idle   *simplelru.LRU[string, *cart.Store]
	pinned map[string]*pinnedStore
	group  singleflight.Group
}

type pinnedStore struct {
	store *cart.Store
	refs  int
}

func NewRegistry(slots port.SlotStore, cfg RegistryConfig, logger *slog.Logger) (*Registry, error) {
	if cfg.MaxIdleSessions <= 0 {
		cfg.MaxIdleSessions = DefaultMaxIdleSessions
	}

	r := &Registry{
		slots:  slots,
		cfg:    cfg,
		logger: logger,
		pinned: make(map[string]*pinnedStore),
	}

	idle, err := simplelru.NewLRU[string, *cart.Store](cfg.MaxIdleSessions, func(session string, _ *cart.Store) {
		r.logger.Debug("idle cart evicted", slog.String("session", session))
	})
	if err != nil {
		return nil, fmt.Errorf("simplelru.NewLRU: %w", err)
	}
	r.idle = idle

	return r, nil
}

// Acquire returns the session's store, loading it on first use. The store
// stays pinned until release is called; release may be called more than once.
func (r *Registry) Acquire(ctx context.Context, session string) (store *cart.Store, release func(), err error) {
	if !sessionPattern.MatchString(session) {
		return nil, nil, fmt.Errorf("session[%s] is not valid", session)
	}

	r.mu.Lock()
	store, ok := r.pinLocked(session)
	r.mu.Unlock()

	if !ok {
		v, _, _ := r.group.Do(session, func() (any, error) {
			return r.load(ctx, session), nil
		})
		loaded := v.(*cart.Store)

		r.mu.Lock()
		if store, ok = r.pinLocked(session); !ok {
			store = loaded
			r.pinned[session] = &pinnedStore{store: store, refs: 1}
		}
		r.mu.Unlock()
	}

	var once sync.Once
	return store, func() { once.Do(func() { r.release(session) }) }, nil
}

func (r *Registry) pinLocked(session string) (*cart.Store, bool) {
	if p, ok := r.pinned[session]; ok {
		p.refs++
		return p.store, true
	}

	if store, ok := r.idle.Peek(session); ok {
		r.idle.Remove(session)
		r.pinned[session] = &pinnedStore{store: store, refs: 1}
		return store, true
	}

	return nil, false
}

func (r *Registry) load(ctx context.Context, session string) *cart.Store {
	store := cart.New(r.slots,
		cart.WithKeys(r.cfg.Keys.Namespaced(session)),
		cart.WithOwner(session),
		cart.WithCurrency(r.cfg.Currency),
		cart.WithLocale(r.cfg.Locale),
		cart.WithLogger(r.logger.With(slog.String("session", session))),
	)
	// a cancelled request must not leave an empty cart cached
	store.Initialize(context.WithoutCancel(ctx))

	return store
}

func (r *Registry) release(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pinned[session]
	if !ok {
		return
	}

	p.refs--
	if p.refs > 0 {
		return
	}

	delete(r.pinned, session)
	r.idle.Add(session, p.store)
}

// Len is the number of stores held, pinned and idle.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pinned) + r.idle.Len()
}
