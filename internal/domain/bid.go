package domain

// Bid status codes
const (
	BidStatusConfirmed = "CONFIRMED"
	BidStatusFailed    = "FAILED"
)

// BidRecord represents one simulated bid submitted against a live auction.
// Corresponds to the bid_records table in PostgreSQL.
type BidRecord struct {
	BidID        string // UUID assigned at submit time
	DeploymentID string // deploy run this bid belongs to
	Sequence     int    // 1-based submit order within the run
	Bidder       string // hex address of the bidding account

	AmountWei string // transaction value in wei (decimal string)
	PriceWei  string // auction price observed before submit in wei (decimal string)

	TxHash  string // bid transaction hash
	GasUsed int64  // gas consumed by the mined transaction
	Status  string // "CONFIRMED" | "FAILED"

	SubmittedAtMs int64 // Unix timestamp in milliseconds
}
