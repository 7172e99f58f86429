package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

// DeploymentStore implements storage.DeploymentStore using PostgreSQL.
type DeploymentStore struct {
	pool *Pool
}

// NewDeploymentStore creates a new DeploymentStore.
func NewDeploymentStore(pool *Pool) *DeploymentStore {
	return &DeploymentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeploymentStore = (*DeploymentStore)(nil)

// Insert adds a new deployment. Returns ErrDuplicateKey if deployment_id exists.
func (s *DeploymentStore) Insert(ctx context.Context, d *domain.Deployment) error {
	query := `
		INSERT INTO deployments (
			deployment_id, chain_name, network_id, owner,
			auction_address, auction_tx_hash, token_address, token_tx_hash,
			price_factor, price_constant, supply_tei, start_price_wei, created_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		d.DeploymentID,
		d.ChainName,
		d.NetworkID,
		d.Owner,
		d.AuctionAddress,
		d.AuctionTxHash,
		d.TokenAddress,
		d.TokenTxHash,
		d.PriceFactor,
		d.PriceConstant,
		d.SupplyTei,
		d.StartPriceWei,
		d.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// GetByID retrieves a deployment by its ID. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(ctx context.Context, deploymentID string) (*domain.Deployment, error) {
	query := `
		SELECT deployment_id, chain_name, network_id, owner,
			auction_address, auction_tx_hash, token_address, token_tx_hash,
			price_factor::text, price_constant::text, supply_tei::text, start_price_wei::text, created_at_ms
		FROM deployments
		WHERE deployment_id = $1
	`

	row := s.pool.QueryRow(ctx, query, deploymentID)
	d, err := scanDeployment(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get deployment by id: %w", err)
	}
	return d, nil
}

// GetByChain retrieves all deployments on a chain, ordered by created_at ASC.
func (s *DeploymentStore) GetByChain(ctx context.Context, chainName string) ([]*domain.Deployment, error) {
	query := `
		SELECT deployment_id, chain_name, network_id, owner,
			auction_address, auction_tx_hash, token_address, token_tx_hash,
			price_factor::text, price_constant::text, supply_tei::text, start_price_wei::text, created_at_ms
		FROM deployments
		WHERE chain_name = $1
		ORDER BY created_at_ms ASC, deployment_id ASC
	`

	rows, err := s.pool.Query(ctx, query, chainName)
	if err != nil {
		return nil, fmt.Errorf("get deployments by chain: %w", err)
	}
	defer rows.Close()

	var deployments []*domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment row: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment rows: %w", err)
	}

	return deployments, nil
}

// scanDeployment scans a single row into a Deployment.
func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	var d domain.Deployment

	err := row.Scan(
		&d.DeploymentID,
		&d.ChainName,
		&d.NetworkID,
		&d.Owner,
		&d.AuctionAddress,
		&d.AuctionTxHash,
		&d.TokenAddress,
		&d.TokenTxHash,
		&d.PriceFactor,
		&d.PriceConstant,
		&d.SupplyTei,
		&d.StartPriceWei,
		&d.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
