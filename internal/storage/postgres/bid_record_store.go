package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

// BidRecordStore implements storage.BidRecordStore using PostgreSQL.
type BidRecordStore struct {
	pool *Pool
}

// NewBidRecordStore creates a new BidRecordStore.
func NewBidRecordStore(pool *Pool) *BidRecordStore {
	return &BidRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BidRecordStore = (*BidRecordStore)(nil)

// Insert adds a new bid. Returns ErrDuplicateKey if bid_id exists.
func (s *BidRecordStore) Insert(ctx context.Context, b *domain.BidRecord) error {
	query := `
		INSERT INTO bid_records (
			bid_id, deployment_id, sequence, bidder,
			amount_wei, price_wei, tx_hash, gas_used, status, submitted_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		b.BidID,
		b.DeploymentID,
		b.Sequence,
		b.Bidder,
		b.AmountWei,
		b.PriceWei,
		b.TxHash,
		b.GasUsed,
		b.Status,
		b.SubmittedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bid: %w", err)
	}
	return nil
}

// InsertBulk adds multiple bids atomically. Fails entire batch on any duplicate.
func (s *BidRecordStore) InsertBulk(ctx context.Context, bids []*domain.BidRecord) error {
	if len(bids) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO bid_records (
			bid_id, deployment_id, sequence, bidder,
			amount_wei, price_wei, tx_hash, gas_used, status, submitted_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, b := range bids {
		_, err := tx.Exec(ctx, query,
			b.BidID,
			b.DeploymentID,
			b.Sequence,
			b.Bidder,
			b.AmountWei,
			b.PriceWei,
			b.TxHash,
			b.GasUsed,
			b.Status,
			b.SubmittedAtMs,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert bid in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByDeploymentID retrieves all bids for a deployment, ordered by sequence ASC.
func (s *BidRecordStore) GetByDeploymentID(ctx context.Context, deploymentID string) ([]*domain.BidRecord, error) {
	query := `
		SELECT bid_id, deployment_id, sequence, bidder,
			amount_wei::text, price_wei::text, tx_hash, gas_used, status, submitted_at_ms
		FROM bid_records
		WHERE deployment_id = $1
		ORDER BY sequence ASC, bid_id ASC
	`

	rows, err := s.pool.Query(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("get bids by deployment id: %w", err)
	}
	defer rows.Close()

	return scanBids(rows)
}

// scanBids scans multiple rows into a slice of BidRecord.
func scanBids(rows pgx.Rows) ([]*domain.BidRecord, error) {
	var bids []*domain.BidRecord

	for rows.Next() {
		var b domain.BidRecord

		err := rows.Scan(
			&b.BidID,
			&b.DeploymentID,
			&b.Sequence,
			&b.Bidder,
			&b.AmountWei,
			&b.PriceWei,
			&b.TxHash,
			&b.GasUsed,
			&b.Status,
			&b.SubmittedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bid row: %w", err)
		}

		bids = append(bids, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bid rows: %w", err)
	}

	return bids, nil
}
