package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

func TestBidRecordStore_InsertAndGet(t *testing.T) {
	store := NewBidRecordStore()
	ctx := context.Background()

	bid := &domain.BidRecord{
		BidID:         "bid1",
		DeploymentID:  "dep1",
		Sequence:      1,
		Bidder:        "0xdd00000000000000000000000000000000000004",
		AmountWei:     "50000000000000000",
		PriceWei:      "90909090909090909",
		TxHash:        "0xabc",
		GasUsed:       36411,
		Status:        domain.BidStatusConfirmed,
		SubmittedAtMs: 1000,
	}

	if err := store.Insert(ctx, bid); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByDeploymentID(ctx, "dep1")
	if err != nil {
		t.Fatalf("GetByDeploymentID failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 bid, got %d", len(result))
	}
	if result[0].AmountWei != "50000000000000000" {
		t.Errorf("AmountWei mismatch: got %s", result[0].AmountWei)
	}
}

func TestBidRecordStore_DuplicateKey(t *testing.T) {
	store := NewBidRecordStore()
	ctx := context.Background()

	bid := &domain.BidRecord{BidID: "bid1", DeploymentID: "dep1", Sequence: 1}

	if err := store.Insert(ctx, bid); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, bid)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestBidRecordStore_InsertBulk(t *testing.T) {
	store := NewBidRecordStore()
	ctx := context.Background()

	bids := []*domain.BidRecord{
		{BidID: "b1", DeploymentID: "dep1", Sequence: 1, SubmittedAtMs: 1000},
		{BidID: "b2", DeploymentID: "dep1", Sequence: 2, SubmittedAtMs: 2000},
		{BidID: "b3", DeploymentID: "dep2", Sequence: 1, SubmittedAtMs: 3000},
	}

	if err := store.InsertBulk(ctx, bids); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, _ := store.GetByDeploymentID(ctx, "dep1")
	if len(result) != 2 {
		t.Errorf("Expected 2 bids for dep1, got %d", len(result))
	}
}

func TestBidRecordStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewBidRecordStore()
	ctx := context.Background()

	first := &domain.BidRecord{BidID: "b1", DeploymentID: "dep1", Sequence: 1}
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	bids := []*domain.BidRecord{
		{BidID: "b2", DeploymentID: "dep1", Sequence: 2},
		{BidID: "b1", DeploymentID: "dep1", Sequence: 3}, // duplicate
	}

	err := store.InsertBulk(ctx, bids)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify all-or-nothing
	all, _ := store.GetByDeploymentID(ctx, "dep1")
	if len(all) != 1 {
		t.Errorf("Expected 1 bid (no partial insert), got %d", len(all))
	}
}

func TestBidRecordStore_OrderedBySequence(t *testing.T) {
	store := NewBidRecordStore()
	ctx := context.Background()

	bids := []*domain.BidRecord{
		{BidID: "b3", DeploymentID: "dep1", Sequence: 3},
		{BidID: "b1", DeploymentID: "dep1", Sequence: 1},
		{BidID: "b2", DeploymentID: "dep1", Sequence: 2},
	}

	if err := store.InsertBulk(ctx, bids); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByDeploymentID(ctx, "dep1")
	if err != nil {
		t.Fatalf("GetByDeploymentID failed: %v", err)
	}

	for i, b := range result {
		if b.Sequence != i+1 {
			t.Errorf("Position %d: expected sequence %d, got %d", i, i+1, b.Sequence)
		}
	}
}

func TestBidRecordStore_InvalidInput(t *testing.T) {
	store := NewBidRecordStore()
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.Insert(ctx, &domain.BidRecord{BidID: ""})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}
