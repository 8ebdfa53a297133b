package sqldb

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func TestProducts_CreateKeepsExactPrice(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		p := createTestProduct(t, s, "Tee", "19.99")

		got, err := s.Products().Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Tee", got.Name)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")), got.Price.String())
	})
}

func TestProducts_CreateRejectsUnstorablePrices(t *testing.T) {
	forEachStore(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		for _, price := range []string{"19.999", "-5.00"} {
			p := entity.Product{Name: "Tee", Price: decimal.RequireFromString(price)}
			err := s.Products().Create(ctx, &p)
			assert.ErrorIs(t, err, entity.ErrInvalidArgument, price)
			assert.Zero(t, p.ID)
		}

		var n int
		require.NoError(t, s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n))
		assert.Zero(t, n)
	})
}
