package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nikolayk812/repairshop-cart/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			"migrations/01_cart_slots.up.sql"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return postgresContainer, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return postgresContainer, connStr, nil
}

// testSlotStore runs the behaviour every SlotStore implementation shares.
func testSlotStore(t *testing.T, store port.SlotStore) {
	t.Run("load missing key: not found", func(t *testing.T) {
		_, err := store.Load(t.Context(), randomKey())
		require.ErrorIs(t, err, port.ErrSlotNotFound)
	})

	t.Run("save then load: ok", func(t *testing.T) {
		key := randomKey()
		value := randomSlotValue()

		require.NoError(t, store.Save(t.Context(), key, value))

		got, err := store.Load(t.Context(), key)
		require.NoError(t, err)
		assert.JSONEq(t, string(value), string(got))
	})

	t.Run("save overwrites: ok", func(t *testing.T) {
		key := randomKey()

		require.NoError(t, store.Save(t.Context(), key, randomSlotValue()))
		second := randomSlotValue()
		require.NoError(t, store.Save(t.Context(), key, second))

		got, err := store.Load(t.Context(), key)
		require.NoError(t, err)
		assert.JSONEq(t, string(second), string(got))
	})

	t.Run("delete existing then missing: ok", func(t *testing.T) {
		key := randomKey()
		require.NoError(t, store.Save(t.Context(), key, randomSlotValue()))

		deleted, err := store.Delete(t.Context(), key)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.Delete(t.Context(), key)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = store.Load(t.Context(), key)
		require.ErrorIs(t, err, port.ErrSlotNotFound)
	})

	t.Run("empty key: error", func(t *testing.T) {
		_, err := store.Load(t.Context(), "")
		require.EqualError(t, err, "key is empty")

		err = store.Save(t.Context(), "", randomSlotValue())
		require.EqualError(t, err, "key is empty")

		_, err = store.Delete(t.Context(), "")
		require.EqualError(t, err, "key is empty")
	})

	batch, ok := store.(port.BatchSlotStore)
	if !ok {
		return
	}

	t.Run("save all: ok", func(t *testing.T) {
		values := map[string][]byte{
			randomKey(): randomSlotValue(),
			randomKey(): []byte(`[]`),
		}

		require.NoError(t, batch.SaveAll(t.Context(), values))

		for key, want := range values {
			got, err := batch.Load(t.Context(), key)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		}
	})
}

func randomKey() string {
	return gofakeit.UUID() + ":shoppingCart"
}

func randomSlotValue() []byte {
	return []byte(fmt.Sprintf(`[{"id":%q,"name":%q,"unitPrice":%d,"quantity":%d,"type":"product"}]`,
		gofakeit.UUID(), gofakeit.ProductName(), gofakeit.Number(0, 50000), gofakeit.Number(1, 9)))
}
