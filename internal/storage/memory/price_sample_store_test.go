package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

func TestPriceSampleStore_InsertBulkAndGet(t *testing.T) {
	store := NewPriceSampleStore()
	ctx := context.Background()

	samples := []*domain.PriceSample{
		{DeploymentID: "dep1", TimestampMs: 3000, ElapsedSec: 3, PriceWei: "88235294117647058"},
		{DeploymentID: "dep1", TimestampMs: 1000, ElapsedSec: 1, PriceWei: "89552238805970149"},
		{DeploymentID: "dep2", TimestampMs: 2000, ElapsedSec: 2, PriceWei: "88888888888888888"},
	}

	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByDeploymentID(ctx, "dep1")
	if err != nil {
		t.Fatalf("GetByDeploymentID failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 samples for dep1, got %d", len(result))
	}
	if result[0].TimestampMs != 1000 || result[1].TimestampMs != 3000 {
		t.Errorf("Results not ordered by timestamp: got %d, %d", result[0].TimestampMs, result[1].TimestampMs)
	}
}

func TestPriceSampleStore_GetByTimeRange(t *testing.T) {
	store := NewPriceSampleStore()
	ctx := context.Background()

	samples := []*domain.PriceSample{
		{DeploymentID: "dep1", TimestampMs: 1000, ElapsedSec: 1, PriceWei: "100"},
		{DeploymentID: "dep1", TimestampMs: 2000, ElapsedSec: 2, PriceWei: "99"},
		{DeploymentID: "dep1", TimestampMs: 3000, ElapsedSec: 3, PriceWei: "98"},
		{DeploymentID: "dep1", TimestampMs: 4000, ElapsedSec: 4, PriceWei: "97"},
	}

	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "dep1", 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 samples in range, got %d", len(result))
	}
	if result[0].PriceWei != "99" || result[1].PriceWei != "98" {
		t.Errorf("Unexpected range contents: %s, %s", result[0].PriceWei, result[1].PriceWei)
	}
}

func TestPriceSampleStore_DuplicateKey(t *testing.T) {
	store := NewPriceSampleStore()
	ctx := context.Background()

	first := []*domain.PriceSample{
		{DeploymentID: "dep1", TimestampMs: 1000, ElapsedSec: 1, PriceWei: "100"},
	}
	if err := store.InsertBulk(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	dup := []*domain.PriceSample{
		{DeploymentID: "dep1", TimestampMs: 2000, ElapsedSec: 2, PriceWei: "99"},
		{DeploymentID: "dep1", TimestampMs: 1000, ElapsedSec: 1, PriceWei: "100"}, // duplicate
	}

	err := store.InsertBulk(ctx, dup)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify all-or-nothing
	all, _ := store.GetByDeploymentID(ctx, "dep1")
	if len(all) != 1 {
		t.Errorf("Expected 1 sample (no partial insert), got %d", len(all))
	}
}

func TestPriceSampleStore_IntraBatchDuplicate(t *testing.T) {
	store := NewPriceSampleStore()
	ctx := context.Background()

	samples := []*domain.PriceSample{
		{DeploymentID: "dep1", TimestampMs: 1000, ElapsedSec: 1, PriceWei: "100"},
		{DeploymentID: "dep1", TimestampMs: 1000, ElapsedSec: 1, PriceWei: "100"},
	}

	err := store.InsertBulk(ctx, samples)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestPriceSampleStore_EmptyBatch(t *testing.T) {
	store := NewPriceSampleStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, nil); err != nil {
		t.Errorf("Empty batch should succeed, got %v", err)
	}
}

func TestPriceSampleStore_InvalidInput(t *testing.T) {
	store := NewPriceSampleStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.PriceSample{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.InsertBulk(ctx, []*domain.PriceSample{{DeploymentID: ""}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty deployment ID, got %v", err)
	}
}
