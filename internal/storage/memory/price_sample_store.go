package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

// PriceSampleStore is an in-memory implementation of storage.PriceSampleStore.
type PriceSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceSample // keyed by composite key
}

// NewPriceSampleStore creates a new in-memory price sample store.
func NewPriceSampleStore() *PriceSampleStore {
	return &PriceSampleStore{
		data: make(map[string]*domain.PriceSample),
	}
}

// sampleKey generates a unique key for a price sample.
func sampleKey(deploymentID string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", deploymentID, timestampMs)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate (deployment_id, timestamp_ms).
func (s *PriceSampleStore) InsertBulk(_ context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(samples))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range samples {
		if p == nil || p.DeploymentID == "" {
			return storage.ErrInvalidInput
		}
		key := sampleKey(p.DeploymentID, p.TimestampMs)

		// Check existing data
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		// Check intra-batch duplicate
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range samples {
		key := sampleKey(p.DeploymentID, p.TimestampMs)
		copy := *p
		s.data[key] = &copy
	}

	return nil
}

// GetByDeploymentID retrieves all samples for a deployment, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByDeploymentID(_ context.Context, deploymentID string) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, p := range s.data {
		if p.DeploymentID == deploymentID {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortSamples(result)
	return result, nil
}

// GetByTimeRange retrieves samples for a deployment within [start, end] (inclusive).
func (s *PriceSampleStore) GetByTimeRange(_ context.Context, deploymentID string, start, end int64) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, p := range s.data {
		if p.DeploymentID == deploymentID && p.TimestampMs >= start && p.TimestampMs <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sortSamples(result)
	return result, nil
}

func sortSamples(samples []*domain.PriceSample) {
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].TimestampMs < samples[j].TimestampMs
	})
}

var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)
