package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("creates one-time product", func(t *testing.T) {
		p, err := NewProduct("T-Shirt", "Cotton", decimal.NewFromFloat(19.99), "USD")

		require.NoError(t, err)
		assert.Equal(t, "usd", p.Currency)
		assert.Equal(t, BillingTypeOneTime, p.BillingType)
		assert.True(t, p.IsActive)
		assert.False(t, p.IsFree)
		assert.True(t, p.NeedsProviderPrice())
		assert.Equal(t, int64(1999), p.UnitAmount())
	})

	t.Run("zero price is free", func(t *testing.T) {
		p, err := NewRecurringProduct("Free", "", decimal.Zero, "usd", BillingIntervalMonth, 1)

		require.NoError(t, err)
		assert.True(t, p.IsFree)
		assert.False(t, p.NeedsProviderPrice())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewProduct("  ", "", decimal.NewFromInt(1), "usd")
		assert.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewProduct("Thing", "", decimal.NewFromInt(-1), "usd")
		assert.Error(t, err)
	})
}

func TestNewRecurringProduct(t *testing.T) {
	t.Run("defaults interval count to one", func(t *testing.T) {
		p, err := NewRecurringProduct("Pro", "", decimal.NewFromInt(29), "usd", BillingIntervalMonth, 0)

		require.NoError(t, err)
		assert.Equal(t, 1, p.BillingIntervalCount)
		assert.True(t, p.IsRecurring())
	})

	t.Run("rejects unknown interval", func(t *testing.T) {
		_, err := NewRecurringProduct("Pro", "", decimal.NewFromInt(29), "usd", BillingInterval("fortnight"), 1)
		assert.Error(t, err)
	})
}

func TestProduct_Validate_OneTimeWithInterval(t *testing.T) {
	p, err := NewProduct("Thing", "", decimal.NewFromInt(5), "usd")
	require.NoError(t, err)

	p.BillingInterval = BillingIntervalYear
	assert.Error(t, p.Validate())
}

func TestProduct_LinkProviderPrice(t *testing.T) {
	p, err := NewProduct("Thing", "", decimal.NewFromInt(5), "usd")
	require.NoError(t, err)

	p.LinkProviderPrice("prod_1", "price_1")

	assert.Equal(t, "prod_1", p.ExternalProductID)
	assert.Equal(t, "price_1", p.ExternalPriceID)
	assert.False(t, p.NeedsProviderPrice())
}
