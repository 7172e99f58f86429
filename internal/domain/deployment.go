package domain

// Deployment represents one deploy run of an auction and token pair.
// Corresponds to the deployments table in PostgreSQL.
type Deployment struct {
	DeploymentID string // UUID assigned when the run starts
	ChainName    string // chain registry entry used for the run
	NetworkID    string // network id reported by the node
	Owner        string // hex address of the deploying account

	AuctionAddress string // deployed auction contract address
	AuctionTxHash  string // auction deploy transaction hash
	TokenAddress   string // deployed token contract address
	TokenTxHash    string // token deploy transaction hash

	PriceFactor   string // price curve factor (decimal string)
	PriceConstant string // price curve constant (decimal string)
	SupplyTei     string // total token supply in Tei (decimal string)
	StartPriceWei string // auction price at elapsed zero in wei (decimal string)

	CreatedAtMs int64 // Unix timestamp in milliseconds
}
