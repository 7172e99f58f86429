package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

// DeploymentStore is an in-memory implementation of storage.DeploymentStore.
type DeploymentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Deployment // keyed by deployment_id
}

// NewDeploymentStore creates a new in-memory deployment store.
func NewDeploymentStore() *DeploymentStore {
	return &DeploymentStore{
		data: make(map[string]*domain.Deployment),
	}
}

// Insert adds a new deployment. Returns ErrDuplicateKey if deployment_id exists.
func (s *DeploymentStore) Insert(_ context.Context, d *domain.Deployment) error {
	if d == nil || d.DeploymentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DeploymentID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[d.DeploymentID] = &copy
	return nil
}

// GetByID retrieves a deployment by its ID. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(_ context.Context, deploymentID string) (*domain.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[deploymentID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *d
	return &copy, nil
}

// GetByChain retrieves all deployments on a chain, ordered by created_at ASC.
func (s *DeploymentStore) GetByChain(_ context.Context, chainName string) ([]*domain.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Deployment
	for _, d := range s.data {
		if d.ChainName == chainName {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs != result[j].CreatedAtMs {
			return result[i].CreatedAtMs < result[j].CreatedAtMs
		}
		return result[i].DeploymentID < result[j].DeploymentID
	})

	return result, nil
}

var _ storage.DeploymentStore = (*DeploymentStore)(nil)
