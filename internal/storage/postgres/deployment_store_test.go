package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

// testDeployment builds a deployment record with realistic wei-scale values.
func testDeployment(id string) *domain.Deployment {
	return &domain.Deployment{
		DeploymentID:   id,
		ChainName:      "privtest",
		NetworkID:      "1337",
		Owner:          "0x00a329c0648769a73afac7f9381e08fb43dbea72",
		AuctionAddress: "0x1111111111111111111111111111111111111111",
		AuctionTxHash:  "0xaaa1",
		TokenAddress:   "0x2222222222222222222222222222222222222222",
		TokenTxHash:    "0xaaa2",
		PriceFactor:    "6",
		PriceConstant:  "66",
		SupplyTei:      "10000000000000000000000000",
		StartPriceWei:  "90909090909090909",
		CreatedAtMs:    1700000000000,
	}
}

func TestDeploymentStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDeploymentStore(pool)

	dep := testDeployment("dep-pg-1")
	err := store.Insert(ctx, dep)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "dep-pg-1")
	require.NoError(t, err)

	assert.Equal(t, dep.ChainName, got.ChainName)
	assert.Equal(t, dep.Owner, got.Owner)
	assert.Equal(t, dep.AuctionAddress, got.AuctionAddress)
	assert.Equal(t, dep.TokenAddress, got.TokenAddress)
	assert.Equal(t, dep.PriceFactor, got.PriceFactor)
	assert.Equal(t, dep.PriceConstant, got.PriceConstant)
	assert.Equal(t, dep.SupplyTei, got.SupplyTei)
	assert.Equal(t, dep.StartPriceWei, got.StartPriceWei)
	assert.Equal(t, dep.CreatedAtMs, got.CreatedAtMs)
}

func TestDeploymentStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDeploymentStore(pool)

	dep := testDeployment("dep-pg-dup")
	require.NoError(t, store.Insert(ctx, dep))

	err := store.Insert(ctx, dep)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDeploymentStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDeploymentStore(pool)

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeploymentStore_GetByChain(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDeploymentStore(pool)

	first := testDeployment("dep-pg-a")
	first.CreatedAtMs = 1700000002000
	second := testDeployment("dep-pg-b")
	second.CreatedAtMs = 1700000001000
	other := testDeployment("dep-pg-c")
	other.ChainName = "ropsten"

	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Insert(ctx, other))

	got, err := store.GetByChain(ctx, "privtest")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "dep-pg-b", got[0].DeploymentID)
	assert.Equal(t, "dep-pg-a", got[1].DeploymentID)
}
