package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

// BidRecordStore is an in-memory implementation of storage.BidRecordStore.
type BidRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BidRecord // keyed by bid_id
}

// NewBidRecordStore creates a new in-memory bid record store.
func NewBidRecordStore() *BidRecordStore {
	return &BidRecordStore{
		data: make(map[string]*domain.BidRecord),
	}
}

// Insert adds a new bid. Returns ErrDuplicateKey if bid_id exists.
func (s *BidRecordStore) Insert(_ context.Context, b *domain.BidRecord) error {
	if b == nil || b.BidID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.BidID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *b
	s.data[b.BidID] = &copy
	return nil
}

// InsertBulk adds multiple bids atomically. Fails entire batch on any duplicate.
func (s *BidRecordStore) InsertBulk(_ context.Context, bids []*domain.BidRecord) error {
	if len(bids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bids))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bids {
		if b == nil || b.BidID == "" {
			return storage.ErrInvalidInput
		}

		// Check existing data
		if _, exists := s.data[b.BidID]; exists {
			return storage.ErrDuplicateKey
		}
		// Check intra-batch duplicate
		if _, exists := batchKeys[b.BidID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[b.BidID] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bids {
		copy := *b
		s.data[b.BidID] = &copy
	}

	return nil
}

// GetByDeploymentID retrieves all bids for a deployment, ordered by sequence ASC.
func (s *BidRecordStore) GetByDeploymentID(_ context.Context, deploymentID string) ([]*domain.BidRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BidRecord
	for _, b := range s.data {
		if b.DeploymentID == deploymentID {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})

	return result, nil
}

var _ storage.BidRecordStore = (*BidRecordStore)(nil)
