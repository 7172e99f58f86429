// Package deployer orchestrates a full deployment run: resolve the price
// function parameters, deploy the auction and token contracts, link them,
// and optionally rehearse the auction with simulated bids before real
// funds are committed.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/ToniyaSundaram/raiden-token/internal/chain"
	"github.com/ToniyaSundaram/raiden-token/internal/config"
	"github.com/ToniyaSundaram/raiden-token/internal/contracts"
	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/observability"
	"github.com/ToniyaSundaram/raiden-token/internal/pricing"
	"github.com/ToniyaSundaram/raiden-token/internal/simulation"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
	"github.com/ToniyaSundaram/raiden-token/internal/units"
	"github.com/ToniyaSundaram/raiden-token/internal/wallet"
)

// Deployer errors
var (
	ErrInvalidConfig = errors.New("invalid deployer config")
)

// Contract names expected in the artifacts file.
const (
	auctionContract = "DutchAuction"
	tokenContract   = "ReserveToken"
)

// Default preallocation amounts in whole tokens, scaled to Tei at deploy
// time.
var defaultPreallocTokens = []int64{200_000, 800_000}

// Config carries one deployment run's parameters. The zero value is not
// usable; populate and Validate before New.
type Config struct {
	// Chain is the resolved target chain entry.
	Chain config.Chain

	// Owner is the deploying account. The zero address selects the node's
	// first managed account.
	Owner common.Address

	// Supply is the token supply in whole tokens.
	Supply int64

	// PriceFactor and PriceConstant are the explicit price function
	// parameters. Ignored when PricePoints is set.
	PriceFactor   *big.Int
	PriceConstant *big.Int

	// PricePoints, when non-empty, derives the parameters from two curve
	// samples "price1,elapsed1,price2,elapsed2" via the solver.
	PricePoints string

	// PreallocAddresses receive token preallocations. Empty selects the
	// node's accounts[1:3], or freshly generated wallets when the node
	// manages too few accounts.
	PreallocAddresses []common.Address

	// PreallocAmounts are the preallocation amounts in Tei. Empty selects
	// the defaults (200000 and 800000 whole tokens).
	PreallocAmounts []*big.Int

	// Simulate runs the bid rehearsal after a successful deployment.
	Simulate      bool
	BidderCount   int
	BidCount      int
	BidStartPrice *big.Int // wei; nil starts bidding immediately
	BidInterval   time.Duration
}

// Validate checks the run parameters before any chain interaction.
func (c Config) Validate() error {
	if c.Chain.Name == "" {
		return fmt.Errorf("%w: chain is not set", ErrInvalidConfig)
	}
	if c.Supply <= 0 {
		return fmt.Errorf("%w: supply %d", ErrInvalidConfig, c.Supply)
	}

	if c.PricePoints != "" {
		if _, _, err := pricing.ParsePricePoints(c.PricePoints); err != nil {
			return fmt.Errorf("%w: price points: %v", ErrInvalidConfig, err)
		}
	} else {
		if c.PriceFactor == nil || c.PriceFactor.Sign() < 1 {
			return fmt.Errorf("%w: price factor must be a positive integer", ErrInvalidConfig)
		}
		if c.PriceConstant == nil || c.PriceConstant.Sign() < 1 {
			return fmt.Errorf("%w: price constant must be a positive integer", ErrInvalidConfig)
		}
	}

	if len(c.PreallocAddresses) > 0 && len(c.PreallocAmounts) > 0 &&
		len(c.PreallocAddresses) != len(c.PreallocAmounts) {
		return fmt.Errorf("%w: %d preallocation addresses for %d amounts",
			ErrInvalidConfig, len(c.PreallocAddresses), len(c.PreallocAmounts))
	}
	for _, amount := range c.PreallocAmounts {
		if amount == nil || amount.Sign() < 1 {
			return fmt.Errorf("%w: preallocation amounts must be positive", ErrInvalidConfig)
		}
	}

	if c.Simulate {
		if c.BidderCount < 1 {
			return fmt.Errorf("%w: bidder count %d", ErrInvalidConfig, c.BidderCount)
		}
		if c.BidCount < 1 {
			return fmt.Errorf("%w: bid count %d", ErrInvalidConfig, c.BidCount)
		}
		if c.BidStartPrice != nil && c.BidStartPrice.Sign() < 0 {
			return fmt.Errorf("%w: negative bid start price", ErrInvalidConfig)
		}
		if c.BidInterval < 0 {
			return fmt.Errorf("%w: negative bid interval", ErrInvalidConfig)
		}
	}
	return nil
}

// Options contains the dependencies for creating a Deployer.
type Options struct {
	Gateway   chain.Gateway
	Accounts  chain.AccountManager
	Artifacts *contracts.Registry

	Deployments storage.DeploymentStore
	Bids        storage.BidRecordStore
	Samples     storage.PriceSampleStore

	// Logger narrates progress. Nil discards it.
	Logger *log.Logger
}

// Deployer executes deployment runs.
type Deployer struct {
	gw       chain.Gateway
	accounts chain.AccountManager
	registry *contracts.Registry

	deployments storage.DeploymentStore
	bids        storage.BidRecordStore
	samples     storage.PriceSampleStore

	cfg    Config
	logger *log.Logger
}

// New creates a deployer for one run.
func New(cfg Config, opts Options) (*Deployer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("%w: nil gateway", ErrInvalidConfig)
	}
	if opts.Accounts == nil {
		return nil, fmt.Errorf("%w: nil account manager", ErrInvalidConfig)
	}
	if opts.Artifacts == nil {
		return nil, fmt.Errorf("%w: nil artifact registry", ErrInvalidConfig)
	}
	if opts.Deployments == nil || opts.Bids == nil || opts.Samples == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Deployer{
		gw:          opts.Gateway,
		accounts:    opts.Accounts,
		registry:    opts.Artifacts,
		deployments: opts.Deployments,
		bids:        opts.Bids,
		samples:     opts.Samples,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Result is the outcome of one deployment run.
type Result struct {
	DeploymentID string

	AuctionAddress common.Address
	AuctionTxHash  common.Hash
	TokenAddress   common.Address
	TokenTxHash    common.Hash

	Factor    *big.Int
	Constant  *big.Int
	SupplyTei *big.Int

	// StartPriceWei is the auction price read right after linking, at
	// elapsed zero.
	StartPriceWei *big.Int

	// Simulation holds the rehearsal outcome when one was requested. It is
	// set even when the rehearsal aborted; the deployment itself stands.
	Simulation *simulation.Result
}

// Run executes the deployment.
// Steps:
//  1. Resolve price parameters (solver when price points are given)
//  2. Resolve owner and preallocations from the node's accounts
//  3. Deploy DutchAuction(factor, constant)
//  4. Deploy ReserveToken(auction, supply, preallocAddresses, preallocAmounts)
//  5. Link via auction.setup(token) and confirm
//  6. Sanity reads: total supply and the price at elapsed zero
//  7. Record the deployment
//  8. Rehearse with simulated bids when configured
//
// There is no rollback: a token deployment or linking failure leaves the
// already deployed auction orphaned on the chain.
func (d *Deployer) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	status := "failure"
	defer func() {
		observability.RecordDeploy(d.cfg.Chain.Name, status, time.Since(started).Seconds())
	}()

	// 1. Resolve price parameters
	params, err := d.resolveParameters()
	if err != nil {
		return nil, err
	}

	d.logger.Printf("Make sure %s chain is running, you can connect to it and it is synced, or you'll get timeout", d.cfg.Chain.Name)

	// 2. Resolve owner and preallocations
	accounts, err := d.accounts.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	owner := d.cfg.Owner
	if owner == (common.Address{}) {
		if len(accounts) == 0 {
			return nil, chain.ErrNoAccounts
		}
		owner = accounts[0]
	}

	preallocAddrs, preallocAmounts, err := d.resolvePreallocations(accounts)
	if err != nil {
		return nil, err
	}

	d.logger.Printf("Web3 provider is %s", d.cfg.Chain.HTTPURL)
	d.logger.Printf("Owner %s", owner.Hex())
	d.logger.Printf("Preallocation addresses & amounts in WEI %v %v", hexAddresses(preallocAddrs), preallocAmounts)
	d.logger.Printf("Auction price factor: %s", params.Factor)
	d.logger.Printf("Auction price constant: %s", params.Constant)

	auctionArt, err := d.registry.Get(auctionContract)
	if err != nil {
		return nil, err
	}
	tokenArt, err := d.registry.Get(tokenContract)
	if err != nil {
		return nil, err
	}

	supplyTei := units.ToSmallestUnit(d.cfg.Supply)

	// 3. Deploy the auction
	deployData, err := auctionArt.DeployData(params.Factor, params.Constant)
	if err != nil {
		return nil, err
	}
	auctionAddr, auctionReceipt, err := d.gw.Deploy(ctx, owner, deployData, nil)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", auctionContract, err)
	}
	d.logger.Printf("Deploying auction, tx hash is %s", auctionReceipt.TransactionHash.Hex())
	d.logger.Printf("Auction contract address is %s", auctionAddr.Hex())

	// 4. Deploy the token
	deployData, err = tokenArt.DeployData(auctionAddr, supplyTei, preallocAddrs, preallocAmounts)
	if err != nil {
		return nil, err
	}
	tokenAddr, tokenReceipt, err := d.gw.Deploy(ctx, owner, deployData, nil)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", tokenContract, err)
	}
	d.logger.Printf("Deploying token, tx hash is %s", tokenReceipt.TransactionHash.Hex())
	d.logger.Printf("Token contract address is %s", tokenAddr.Hex())

	// 5. Make contracts aware of each other
	d.logger.Printf("Initializing contracts")
	auction := contracts.NewDutchAuction(d.gw, auctionArt.ABI, auctionAddr)
	token := contracts.NewReserveToken(d.gw, tokenArt.ABI, tokenAddr)

	setupTx, err := auction.Setup(ctx, owner, tokenAddr)
	if err != nil {
		return nil, fmt.Errorf("setup auction: %w", err)
	}
	if _, err := d.gw.AwaitReceipt(ctx, setupTx); err != nil {
		return nil, fmt.Errorf("confirm auction setup: %w", err)
	}

	// 6. Contract reads to see everything looks ok
	supply, err := token.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("read total supply: %w", err)
	}
	d.logger.Printf("Token total supply is %s Tei = %s TKN", supply, units.TokenString(supply))

	price, err := auction.Price(ctx)
	if err != nil {
		return nil, fmt.Errorf("read auction price: %w", err)
	}
	d.logger.Printf("Auction price at elapsed = 0 is %s WEI %s ETH", price, units.EtherString(price))
	observability.SetAuctionPrice(price)

	result := &Result{
		DeploymentID:   uuid.NewString(),
		AuctionAddress: auctionAddr,
		AuctionTxHash:  auctionReceipt.TransactionHash,
		TokenAddress:   tokenAddr,
		TokenTxHash:    tokenReceipt.TransactionHash,
		Factor:         params.Factor,
		Constant:       params.Constant,
		SupplyTei:      supplyTei,
		StartPriceWei:  price,
	}

	// 7. Record the deployment
	record := &domain.Deployment{
		DeploymentID:   result.DeploymentID,
		ChainName:      d.cfg.Chain.Name,
		NetworkID:      d.cfg.Chain.NetworkID,
		Owner:          owner.Hex(),
		AuctionAddress: auctionAddr.Hex(),
		AuctionTxHash:  auctionReceipt.TransactionHash.Hex(),
		TokenAddress:   tokenAddr.Hex(),
		TokenTxHash:    tokenReceipt.TransactionHash.Hex(),
		PriceFactor:    params.Factor.String(),
		PriceConstant:  params.Constant.String(),
		SupplyTei:      supplyTei.String(),
		StartPriceWei:  price.String(),
		CreatedAtMs:    time.Now().UnixMilli(),
	}
	if err := d.deployments.Insert(ctx, record); err != nil {
		return result, fmt.Errorf("record deployment: %w", err)
	}
	status = "success"

	// 8. Rehearsal
	if d.cfg.Simulate {
		simResult, err := d.simulate(ctx, auction, owner, result.DeploymentID)
		result.Simulation = simResult
		if err != nil {
			return result, fmt.Errorf("simulation: %w", err)
		}
	}

	return result, nil
}

// resolveParameters picks the price function parameters: solved from two
// curve samples when price points are given, the explicit pair otherwise.
func (d *Deployer) resolveParameters() (pricing.Parameters, error) {
	if d.cfg.PricePoints == "" {
		return pricing.Parameters{Factor: d.cfg.PriceFactor, Constant: d.cfg.PriceConstant}, nil
	}

	p1, p2, err := pricing.ParsePricePoints(d.cfg.PricePoints)
	if err != nil {
		return pricing.Parameters{}, err
	}
	params, err := pricing.Solve(p1, p2, units.Multiplier)
	if err != nil {
		return pricing.Parameters{}, fmt.Errorf("solve price points: %w", err)
	}
	return params, nil
}

// resolvePreallocations picks the preallocation targets and amounts. With
// no explicit addresses the node's accounts[1:3] are used; a node managing
// fewer than 3 accounts gets freshly generated wallets instead, printed
// with their private keys so the operator can record them.
func (d *Deployer) resolvePreallocations(accounts []common.Address) ([]common.Address, []*big.Int, error) {
	amounts := d.cfg.PreallocAmounts
	if len(amounts) == 0 {
		amounts = make([]*big.Int, len(defaultPreallocTokens))
		for i, tokens := range defaultPreallocTokens {
			amounts[i] = units.ToSmallestUnit(tokens)
		}
	}

	addrs := d.cfg.PreallocAddresses
	if len(addrs) == 0 {
		if len(accounts) >= 3 {
			addrs = accounts[1:3]
		} else {
			generated, err := d.generatePreallocWallets(len(amounts))
			if err != nil {
				return nil, nil, err
			}
			addrs = generated
		}
	}

	if len(addrs) != len(amounts) {
		return nil, nil, fmt.Errorf("%w: %d preallocation addresses for %d amounts",
			ErrInvalidConfig, len(addrs), len(amounts))
	}
	return addrs, amounts, nil
}

func (d *Deployer) generatePreallocWallets(n int) ([]common.Address, error) {
	addrs := make([]common.Address, n)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		w, err := wallet.New()
		if err != nil {
			return nil, fmt.Errorf("create preallocation wallet: %w", err)
		}
		addrs[i] = w.Address
		keys[i] = w.PrivateKey
	}
	d.logger.Printf("Preallocations will be sent to the following addresses:")
	d.logger.Printf("%v", hexAddresses(addrs))
	d.logger.Printf("Preallocation addresses private keys: %v", keys)
	return addrs, nil
}

func hexAddresses(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
