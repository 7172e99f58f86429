package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
)

// PriceSampleStore implements storage.PriceSampleStore using ClickHouse.
type PriceSampleStore struct {
	conn *Conn
}

// NewPriceSampleStore creates a new PriceSampleStore.
func NewPriceSampleStore(conn *Conn) *PriceSampleStore {
	return &PriceSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate (deployment_id, timestamp_ms).
func (s *PriceSampleStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	// Validate rows and reject intra-batch duplicates before any server work.
	type key struct {
		deploymentID string
		timestampMs  int64
	}
	seen := make(map[key]struct{})
	prices := make([]*big.Int, len(samples))
	for i, p := range samples {
		if p == nil || p.DeploymentID == "" {
			return storage.ErrInvalidInput
		}
		price, err := parseWei(p.PriceWei)
		if err != nil {
			return err
		}
		prices[i] = price
		k := key{p.DeploymentID, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range samples {
		exists, err := s.exists(ctx, p.DeploymentID, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (
			deployment_id, timestamp_ms, elapsed_sec, price_wei
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, p := range samples {
		err = batch.Append(
			p.DeploymentID, uint64(p.TimestampMs), uint64(p.ElapsedSec), prices[i],
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDeploymentID retrieves all samples for a deployment, ordered by timestamp ASC.
func (s *PriceSampleStore) GetByDeploymentID(ctx context.Context, deploymentID string) ([]*domain.PriceSample, error) {
	query := `
		SELECT deployment_id, timestamp_ms, elapsed_sec, price_wei
		FROM price_samples
		WHERE deployment_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("query by deployment id: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// GetByTimeRange retrieves samples for a deployment within [start, end] (inclusive).
func (s *PriceSampleStore) GetByTimeRange(ctx context.Context, deploymentID string, start, end int64) ([]*domain.PriceSample, error) {
	query := `
		SELECT deployment_id, timestamp_ms, elapsed_sec, price_wei
		FROM price_samples
		WHERE deployment_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, deploymentID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// exists checks if a sample with the given key exists.
func (s *PriceSampleStore) exists(ctx context.Context, deploymentID string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_samples
		WHERE deployment_id = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, deploymentID, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// parseWei converts a decimal wei string into the big integer the UInt256
// column expects.
func parseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, storage.ErrInvalidInput
	}
	return v, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPriceSamples scans multiple rows.
func scanPriceSamples(rows chRows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample
		var timestampMs, elapsedSec uint64
		var price big.Int

		err := rows.Scan(
			&p.DeploymentID, &timestampMs, &elapsedSec, &price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.ElapsedSec = int64(elapsedSec)
		p.PriceWei = price.String()
		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
