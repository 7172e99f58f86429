package domain

// PriceSample represents one auction price observation.
// Corresponds to the price_samples table in ClickHouse.
type PriceSample struct {
	DeploymentID string // deploy run the sample belongs to
	TimestampMs  int64  // Unix timestamp in milliseconds
	ElapsedSec   int64  // seconds since the run's first observation
	PriceWei     string // observed price in wei (decimal string)
}
