package main

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/memory"
)

const sampleSeed = `
products:
  - sku: PCM-500
    name: Paracetamol 500mg
    category: analgesic
    manufacturer: Upkar Labs
    unit: strip of 10
    price: "42.50"
    stock: 120
  - sku: AMX-250
    name: Amoxicillin 250mg
    price: "88"
    stock: 40
    active: false
`

func TestParseSeed(t *testing.T) {
	products, err := parseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "PCM-500", products[0].SKU)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("42.50")))
	assert.Equal(t, 120, products[0].Stock)
	assert.True(t, products[0].Active)
	assert.NotEmpty(t, products[0].ID)

	assert.False(t, products[1].Active)
	assert.Equal(t, "88.00", products[1].Price.StringFixed(2))
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "missing name",
			input:   "products:\n  - sku: X\n    price: \"1\"\n",
			wantErr: "products[0]: sku and name are required",
		},
		{
			name:    "zero price",
			input:   "products:\n  - sku: X\n    name: X\n    price: \"0\"\n",
			wantErr: "price must be a positive decimal",
		},
		{
			name:    "negative stock",
			input:   "products:\n  - sku: X\n    name: X\n    price: \"1\"\n    stock: -1\n",
			wantErr: "stock must not be negative",
		},
		{
			name:    "duplicate sku",
			input:   "products:\n  - sku: X\n    name: X\n    price: \"1\"\n  - sku: X\n    name: Y\n    price: \"2\"\n",
			wantErr: "duplicate sku",
		},
		{
			name:    "unknown field",
			input:   "products:\n  - sku: X\n    name: X\n    price: \"1\"\n    colour: red\n",
			wantErr: "decode yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSeedProducts_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().Products()

	products, err := parseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)

	created, updated, err := seedProducts(ctx, repo, products)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, updated)

	// повторный seed обновляет по SKU
	again, err := parseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)
	created, updated, err = seedProducts(ctx, repo, again)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, updated)

	list, total, err := repo.List(ctx, repository.ProductQuery{IncludeInactive: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)
}
