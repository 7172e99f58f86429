package storage

import (
	"context"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
)

// DeploymentStore provides access to deployments storage.
type DeploymentStore interface {
	// Insert adds a new deployment. Returns ErrDuplicateKey if deployment_id exists.
	Insert(ctx context.Context, d *domain.Deployment) error

	// GetByID retrieves a deployment by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, deploymentID string) (*domain.Deployment, error)

	// GetByChain retrieves all deployments on a chain, ordered by created_at ASC.
	GetByChain(ctx context.Context, chainName string) ([]*domain.Deployment, error)
}

// BidRecordStore provides access to bid_records storage.
type BidRecordStore interface {
	// Insert adds a new bid. Returns ErrDuplicateKey if bid_id exists.
	Insert(ctx context.Context, b *domain.BidRecord) error

	// InsertBulk adds multiple bids atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, bids []*domain.BidRecord) error

	// GetByDeploymentID retrieves all bids for a deployment, ordered by sequence ASC.
	GetByDeploymentID(ctx context.Context, deploymentID string) ([]*domain.BidRecord, error)
}

// PriceSampleStore provides access to price_samples storage.
type PriceSampleStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate (deployment_id, timestamp_ms).
	InsertBulk(ctx context.Context, samples []*domain.PriceSample) error

	// GetByDeploymentID retrieves all samples for a deployment, ordered by timestamp ASC.
	GetByDeploymentID(ctx context.Context, deploymentID string) ([]*domain.PriceSample, error)

	// GetByTimeRange retrieves samples for a deployment within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, deploymentID string, start, end int64) ([]*domain.PriceSample, error)
}
