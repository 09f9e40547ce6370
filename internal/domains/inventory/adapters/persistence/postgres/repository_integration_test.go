//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/domains/inventory/ports"
	"github.com/Apurer/order-engine/internal/platform/postgres/postgrestest"
)

func seed(t *testing.T, repo *Repository, products ...*domain.Product) {
	t.Helper()
	for _, p := range products {
		require.NoError(t, repo.Upsert(context.Background(), p))
	}
}

func stockOf(t *testing.T, repo *Repository, id string) int {
	t.Helper()
	products, err := repo.GetProducts(context.Background(), []string{id})
	require.NoError(t, err)
	require.Contains(t, products, id)
	return products[id].Stock
}

func TestRepository_DecrementIfAvailableIsGuarded(t *testing.T) {
	repo := NewRepository(postgrestest.Open(t, Models()...))
	seed(t, repo,
		&domain.Product{ID: "A", Name: "Tee", Price: decimal.RequireFromString("25.00"), Stock: 2, Sizes: []string{"S"}},
		&domain.Product{ID: "B", Name: "Mug", Price: decimal.RequireFromString("9.50"), Stock: 1},
	)

	applied, err := repo.DecrementIfAvailable(context.Background(), []domain.Adjustment{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 3},
	})
	require.NoError(t, err)
	require.Equal(t, []domain.Adjustment{{ProductID: "A", Quantity: 2}}, applied)
	assert.Equal(t, 0, stockOf(t, repo, "A"))
	assert.Equal(t, 1, stockOf(t, repo, "B"))

	require.NoError(t, repo.Increment(context.Background(), applied))
	assert.Equal(t, 2, stockOf(t, repo, "A"))
}

func TestRepository_ConcurrentDecrementsNeverGoNegative(t *testing.T) {
	repo := NewRepository(postgrestest.Open(t, Models()...))
	seed(t, repo, &domain.Product{ID: "last", Name: "Last", Price: decimal.NewFromInt(1), Stock: 3})

	var mu sync.Mutex
	wins := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := repo.DecrementIfAvailable(context.Background(), []domain.Adjustment{{ProductID: "last", Quantity: 1}})
			if err == nil && len(applied) == 1 {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, wins)
	assert.Equal(t, 0, stockOf(t, repo, "last"))
}

func TestRepository_IncrementUnknownProductRollsBack(t *testing.T) {
	repo := NewRepository(postgrestest.Open(t, Models()...))
	seed(t, repo, &domain.Product{ID: "A", Name: "Tee", Price: decimal.RequireFromString("25.00"), Stock: 2})

	err := repo.Increment(context.Background(), []domain.Adjustment{
		{ProductID: "A", Quantity: 3},
		{ProductID: "missing", Quantity: 1},
	})
	require.ErrorIs(t, err, ports.ErrNotFound)
	assert.Equal(t, 2, stockOf(t, repo, "A"), "known rows are not incremented")
}
