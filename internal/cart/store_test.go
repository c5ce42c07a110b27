package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/nikolayk812/repairshop-cart/internal/cart"
	"github.com/nikolayk812/repairshop-cart/internal/domain"
	"github.com/nikolayk812/repairshop-cart/internal/port"
	"github.com/nikolayk812/repairshop-cart/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddProduct_MergesSameID(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())
	store.Initialize(ctx)

	item := randomLineItem()
	quantities := []int{1, 3, 2, 5}
	for _, q := range quantities {
		require.NoError(t, store.AddProduct(ctx, item, q))
	}

	products := store.Items(domain.KindProduct)
	require.Len(t, products, 1)
	assert.Equal(t, item.ID, products[0].ID)
	assert.Equal(t, 11, products[0].Quantity)
	assert.Empty(t, store.Items(domain.KindService))
}

func TestAdd_KindsAreIndependent(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())

	product := lineItem("1", "Diagnostics cable", 100)
	service := lineItem("1", "OS reinstall", 500)

	require.NoError(t, store.AddProduct(ctx, product, 2))
	require.NoError(t, store.AddService(ctx, service, 1))

	require.Len(t, store.Items(domain.KindProduct), 1)
	require.Len(t, store.Items(domain.KindService), 1)
	assert.Equal(t, 3, store.TotalItemCount())
	assert.True(t, decimal.NewFromInt(700).Equal(store.TotalPrice()), store.TotalPrice().String())
}

func TestAdd_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		kind     domain.Kind
		item     domain.LineItem
		quantity int
		wantErr  error
	}{
		{
			name:     "missing id: error",
			kind:     domain.KindProduct,
			item:     lineItem("", "RAM", 3500),
			quantity: 1,
			wantErr:  cart.ErrMissingID,
		},
		{
			name:     "zero quantity: error",
			kind:     domain.KindProduct,
			item:     lineItem("5", "RAM", 3500),
			quantity: 0,
			wantErr:  cart.ErrInvalidQuantity,
		},
		{
			name:     "negative quantity: error",
			kind:     domain.KindService,
			item:     lineItem("5", "Cleaning", 300),
			quantity: -2,
			wantErr:  cart.ErrInvalidQuantity,
		},
		{
			name:     "quantity above maximum: error",
			kind:     domain.KindProduct,
			item:     lineItem("5", "RAM", 3500),
			quantity: math.MaxInt,
			wantErr:  cart.ErrInvalidQuantity,
		},
		{
			name:     "unknown kind: error",
			kind:     domain.Kind(7),
			item:     lineItem("5", "RAM", 3500),
			quantity: 1,
			wantErr:  cart.ErrInvalidKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cart.New(repository.NewMemorySlots())
			events := record(store)

			err := store.Add(t.Context(), tt.kind, tt.item, tt.quantity)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Zero(t, store.TotalItemCount())
			assert.Empty(t, *events)
		})
	}
}

func TestAdd_MergeBeyondMaximumRejected(t *testing.T) {
	ctx := t.Context()
	slots := repository.NewMemorySlots()
	store := cart.New(slots)

	ram := lineItem("5", "RAM", 3500)
	require.NoError(t, store.AddProduct(ctx, ram, cart.MaxQuantity))
	events := record(store)

	err := store.AddProduct(ctx, ram, 1)
	require.ErrorIs(t, err, cart.ErrInvalidQuantity)

	assert.Equal(t, cart.MaxQuantity, store.TotalItemCount())
	assert.True(t, decimal.NewFromInt(3500*cart.MaxQuantity).Equal(store.TotalPrice()), store.TotalPrice().String())
	assert.Empty(t, *events)

	reloaded := cart.New(slots)
	reloaded.Initialize(ctx)
	assert.Equal(t, cart.MaxQuantity, reloaded.TotalItemCount())
}

func TestAdd_NegativePriceCoercedToZero(t *testing.T) {
	store := cart.New(repository.NewMemorySlots())

	require.NoError(t, store.AddProduct(t.Context(), lineItem("9", "Refurbished fan", -40), 2))

	assert.True(t, store.TotalPrice().IsZero())
	assert.Equal(t, 2, store.TotalItemCount())
}

func TestRemoveThenAdd_StartsFresh(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())

	item := randomLineItem()
	require.NoError(t, store.AddProduct(ctx, item, 4))

	store.RemoveProduct(ctx, item.ID)
	assert.Empty(t, store.Items(domain.KindProduct))

	require.NoError(t, store.AddProduct(ctx, item, 2))
	products := store.Items(domain.KindProduct)
	require.Len(t, products, 1)
	assert.Equal(t, 2, products[0].Quantity)
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())
	require.NoError(t, store.AddService(ctx, lineItem("3", "Screen replacement", 2500), 1))
	events := record(store)

	store.RemoveService(ctx, "404")
	store.RemoveProduct(ctx, "3") // same id, other kind

	assert.Equal(t, 1, store.TotalItemCount())
	assert.Empty(t, *events)
}

func TestSetQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     int
	}{
		{name: "regular value", quantity: 7, want: 7},
		{name: "zero clamps to one", quantity: 0, want: 1},
		{name: "negative clamps to one", quantity: -3, want: 1},
		{name: "huge clamps to maximum", quantity: math.MaxInt, want: cart.MaxQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			slots := repository.NewMemorySlots()
			store := cart.New(slots)

			require.NoError(t, store.AddService(ctx, lineItem("2", "Data recovery", 1500), 3))
			store.SetQuantity(ctx, "2", domain.KindService, tt.quantity)

			services := store.Items(domain.KindService)
			require.Len(t, services, 1)
			assert.Equal(t, tt.want, services[0].Quantity)

			// persisted as well
			reloaded := cart.New(slots)
			reloaded.Initialize(ctx)
			assert.Equal(t, tt.want, reloaded.TotalItemCount())
		})
	}
}

func TestSetQuantity_AbsentIsNoop(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())
	require.NoError(t, store.AddProduct(ctx, lineItem("2", "SSD", 5500), 1))
	events := record(store)

	store.SetQuantity(ctx, "2", domain.KindService, 4)
	store.SetQuantity(ctx, "8", domain.KindProduct, 4)

	assert.Equal(t, 1, store.TotalItemCount())
	assert.Empty(t, *events)
}

func TestTotals_RAMScenario(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())

	ram := lineItem("5", "RAM", 3500)
	require.NoError(t, store.AddProduct(ctx, ram, 2))
	require.NoError(t, store.AddProduct(ctx, ram, 1))

	assert.Equal(t, 3, store.TotalItemCount())
	assert.Equal(t, "10500", store.TotalPrice().String())
	assert.Equal(t, "₹10,500", store.Total().String())
}

func TestTotalPrice_IsExactForFractions(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())

	item := lineItem("1", "Thermal paste", 0)
	item.UnitPrice = decimal.RequireFromString("0.1")
	require.NoError(t, store.AddProduct(ctx, item, 3))

	assert.Equal(t, "0.3", store.TotalPrice().String())
}

func TestClearCart(t *testing.T) {
	ctx := t.Context()
	slots := repository.NewMemorySlots()
	store := cart.New(slots)

	require.NoError(t, store.AddProduct(ctx, randomLineItem(), 2))
	require.NoError(t, store.AddService(ctx, randomLineItem(), 1))
	events := record(store)

	store.ClearCart(ctx)

	assert.Zero(t, store.TotalItemCount())
	assert.True(t, store.TotalPrice().IsZero())
	require.Len(t, *events, 1)
	assert.Equal(t, cart.EventCleared, (*events)[0].Type)

	for _, key := range []string{cart.DefaultKeys.Products, cart.DefaultKeys.Services} {
		data, err := slots.Load(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(data))
	}
}

func TestInitialize_RoundTrip(t *testing.T) {
	ctx := t.Context()
	slots := repository.NewMemorySlots()

	first := cart.New(slots)
	first.Initialize(ctx)

	for range 3 {
		require.NoError(t, first.AddProduct(ctx, randomLineItem(), gofakeit.Number(1, 5)))
	}
	for range 2 {
		require.NoError(t, first.AddService(ctx, randomLineItem(), gofakeit.Number(1, 5)))
	}
	products := first.Items(domain.KindProduct)
	first.SetQuantity(ctx, products[1].ID, domain.KindProduct, 9)
	first.RemoveProduct(ctx, products[0].ID)

	second := cart.New(slots)
	second.Initialize(ctx)

	assertCart(t, first.Snapshot(), second.Snapshot())
	assert.Equal(t, first.TotalItemCount(), second.TotalItemCount())
	assert.True(t, first.TotalPrice().Equal(second.TotalPrice()))
}

func TestInitialize_DegradesPerSlot(t *testing.T) {
	tests := []struct {
		name         string
		products     string
		services     string
		wantProducts int
		wantServices int
	}{
		{
			name:         "nothing stored: empty",
			wantProducts: 0,
			wantServices: 0,
		},
		{
			name:         "corrupted products slot: services survive",
			products:     `[{"id":1,"name":"CPU"`,
			services:     `[{"id":2,"name":"Cleaning","price":300,"quantity":2}]`,
			wantProducts: 0,
			wantServices: 2,
		},
		{
			name:         "legacy price field and numeric ids: ok",
			products:     `[{"id":5,"name":"RAM","price":3500,"quantity":3,"type":"product","category":"Memory"}]`,
			wantProducts: 3,
		},
		{
			name:         "invalid quantities clamp, duplicates fold, missing ids drop",
			products:     `[{"id":"a","name":"A","unitPrice":1,"quantity":0},{"id":"a","name":"A","unitPrice":1,"quantity":2},{"name":"ghost","unitPrice":1,"quantity":4}]`,
			wantProducts: 3,
		},
		{
			name:         "oversized quantities clamp before folding",
			products:     `[{"id":"a","name":"A","unitPrice":1,"quantity":9223372036854775807},{"id":"a","name":"A","unitPrice":1,"quantity":9223372036854775807}]`,
			wantProducts: cart.MaxQuantity,
		},
		{
			name:         "wrong json type: empty",
			products:     `{"id":5}`,
			services:     `"nope"`,
			wantProducts: 0,
			wantServices: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			slots := repository.NewMemorySlots()
			if tt.products != "" {
				require.NoError(t, slots.Save(ctx, cart.DefaultKeys.Products, []byte(tt.products)))
			}
			if tt.services != "" {
				require.NoError(t, slots.Save(ctx, cart.DefaultKeys.Services, []byte(tt.services)))
			}

			store := cart.New(slots)
			events := record(store)
			store.Initialize(ctx)

			assert.Equal(t, tt.wantProducts, sumQuantity(store.Items(domain.KindProduct)))
			assert.Equal(t, tt.wantServices, sumQuantity(store.Items(domain.KindService)))
			require.Len(t, *events, 1)
			assert.Equal(t, cart.EventLoaded, (*events)[0].Type)
		})
	}
}

func TestInitialize_LoadErrorDegradesToEmpty(t *testing.T) {
	slots := &faultySlots{SlotStore: repository.NewMemorySlots(), loadErr: errors.New("disk on fire")}
	store := cart.New(slots)

	store.Initialize(t.Context())

	assert.Zero(t, store.TotalItemCount())
}

func TestSaveFailure_KeepsInMemoryState(t *testing.T) {
	ctx := t.Context()
	slots := &faultySlots{SlotStore: repository.NewMemorySlots(), saveErr: port.ErrQuotaExceeded}
	store := cart.New(slots)
	events := record(store)

	require.NoError(t, store.AddProduct(ctx, lineItem("5", "RAM", 3500), 2))

	assert.Equal(t, 2, store.TotalItemCount())
	assert.Equal(t, "7000", store.TotalPrice().String())

	require.Len(t, *events, 1)
	assert.ErrorIs(t, (*events)[0].SaveErr, port.ErrQuotaExceeded)

	store.ClearCart(ctx)
	require.Len(t, *events, 2)
	assert.ErrorIs(t, (*events)[1].SaveErr, port.ErrQuotaExceeded)
	assert.Zero(t, store.TotalItemCount())
}

func TestClearCart_UsesBatchWhenAvailable(t *testing.T) {
	ctx := t.Context()
	slots := &countingBatch{BatchSlotStore: repository.NewMemorySlots()}
	store := cart.New(slots)

	require.NoError(t, store.AddProduct(ctx, randomLineItem(), 1))
	store.ClearCart(ctx)

	assert.Equal(t, 1, slots.saves)
	assert.Equal(t, 1, slots.batches)
}

func TestPersistedFormat(t *testing.T) {
	ctx := t.Context()
	slots := repository.NewMemorySlots()
	store := cart.New(slots, cart.WithKeys(cart.DefaultKeys.Namespaced("abc")))

	item := lineItem("5", "RAM", 3500)
	item.Attrs = map[string]json.RawMessage{"category": json.RawMessage(`"Memory"`)}
	require.NoError(t, store.AddProduct(ctx, item, 2))

	data, err := slots.Load(ctx, "abc:shoppingCart")
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"id":"5","name":"RAM","unitPrice":3500,"quantity":2,"type":"product","category":"Memory"}]`,
		string(data))

	_, err = slots.Load(ctx, "shoppingCart")
	require.ErrorIs(t, err, port.ErrSlotNotFound)
}

func TestSubscribe(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())

	var got []cart.Event
	unsubscribe := store.Subscribe(func(ev cart.Event) {
		// observers may read the store
		assert.Equal(t, ev.Count, store.TotalItemCount())
		got = append(got, ev)
	})

	require.NoError(t, store.AddProduct(ctx, lineItem("5", "RAM", 3500), 1))
	require.NoError(t, store.AddService(ctx, lineItem("7", "Virus removal", 800), 1))
	store.SetQuantity(ctx, "5", domain.KindProduct, 3)
	store.RemoveService(ctx, "7")

	unsubscribe()
	unsubscribe()
	store.ClearCart(ctx)

	require.Len(t, got, 4)
	assert.Equal(t, []cart.EventType{cart.EventAdded, cart.EventAdded, cart.EventQuantity, cart.EventRemoved},
		[]cart.EventType{got[0].Type, got[1].Type, got[2].Type, got[3].Type})
	assert.Equal(t, "RAM added to cart!", got[0].Message())
	assert.Equal(t, "Virus removal service added to cart!", got[1].Message())
	assert.Equal(t, 3, got[3].Count)
	assert.Equal(t, "₹10,500", got[3].Total.String())
	assert.Empty(t, got[2].Message())
}

func TestConcurrentAdds_NoLostUpdates(t *testing.T) {
	ctx := context.Background()
	store := cart.New(repository.NewMemorySlots())
	item := lineItem("5", "RAM", 3500)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AddProduct(ctx, item, 1))
		}()
	}
	wg.Wait()

	products := store.Items(domain.KindProduct)
	require.Len(t, products, 1)
	assert.Equal(t, 50, products[0].Quantity)
}

func TestConcurrentAdds_LatestSeqCarriesFinalState(t *testing.T) {
	ctx := context.Background()
	store := cart.New(repository.NewMemorySlots())
	item := lineItem("5", "RAM", 100)

	var (
		mu     sync.Mutex
		events []cart.Event
	)
	store.Subscribe(func(ev cart.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AddProduct(ctx, item, 1))
		}()
	}
	wg.Wait()

	require.Len(t, events, 50)

	seen := make(map[uint64]bool)
	latest := events[0]
	for _, ev := range events {
		assert.False(t, seen[ev.Seq], "seq %d delivered twice", ev.Seq)
		seen[ev.Seq] = true
		if ev.Seq > latest.Seq {
			latest = ev
		}
	}

	assert.Equal(t, uint64(50), latest.Seq)
	assert.Equal(t, 50, latest.Count)
	assert.Equal(t, "₹5,000", latest.Total.String())
}

func TestItems_ReturnsCopies(t *testing.T) {
	ctx := t.Context()
	store := cart.New(repository.NewMemorySlots())

	item := lineItem("5", "RAM", 3500)
	item.Attrs = map[string]json.RawMessage{"stock": json.RawMessage(`4`)}
	require.NoError(t, store.AddProduct(ctx, item, 1))

	items := store.Items(domain.KindProduct)
	items[0].Quantity = 99
	items[0].Attrs["stock"] = json.RawMessage(`0`)

	again := store.Items(domain.KindProduct)
	assert.Equal(t, 1, again[0].Quantity)
	assert.Equal(t, `4`, string(again[0].Attrs["stock"]))
}

type faultySlots struct {
	port.SlotStore
	loadErr error
	saveErr error
}

func (f *faultySlots) Load(ctx context.Context, key string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.SlotStore.Load(ctx, key)
}

func (f *faultySlots) Save(ctx context.Context, key string, value []byte) error {
	if f.saveErr != nil {
		return fmt.Errorf("key[%s]: %w", key, f.saveErr)
	}
	return f.SlotStore.Save(ctx, key, value)
}

type countingBatch struct {
	port.BatchSlotStore
	saves   int
	batches int
}

func (c *countingBatch) Save(ctx context.Context, key string, value []byte) error {
	c.saves++
	return c.BatchSlotStore.Save(ctx, key, value)
}

func (c *countingBatch) SaveAll(ctx context.Context, values map[string][]byte) error {
	c.batches++
	return c.BatchSlotStore.SaveAll(ctx, values)
}

func record(store *cart.Store) *[]cart.Event {
	var events []cart.Event
	store.Subscribe(func(ev cart.Event) {
		events = append(events, ev)
	})
	return &events
}

func sumQuantity(items []domain.LineItem) int {
	var n int
	for _, li := range items {
		n += li.Quantity
	}
	return n
}

func lineItem(id, name string, price int64) domain.LineItem {
	return domain.LineItem{
		ID:        domain.ItemID(id),
		Name:      name,
		UnitPrice: decimal.NewFromInt(price),
	}
}

func randomLineItem() domain.LineItem {
	return domain.LineItem{
		ID:        domain.ItemID(gofakeit.UUID()),
		Name:      gofakeit.ProductName(),
		UnitPrice: decimal.NewFromFloat(gofakeit.Price(100, 50000)).Round(2),
		Attrs: map[string]json.RawMessage{
			"category": json.RawMessage(fmt.Sprintf("%q", gofakeit.ProductCategory())),
		},
	}
}

func assertCart(t *testing.T, expected, actual domain.Cart) {
	t.Helper()

	decimalComparer := cmp.Comparer(func(x, y decimal.Decimal) bool {
		return x.Equal(y)
	})

	opts := cmp.Options{
		decimalComparer,
		cmpopts.EquateEmpty(),
	}

	diff := cmp.Diff(expected, actual, opts)
	assert.Empty(t, diff)
}
