package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ToniyaSundaram/raiden-token/internal/chain"
	"github.com/ToniyaSundaram/raiden-token/internal/config"
	"github.com/ToniyaSundaram/raiden-token/internal/contracts"
	"github.com/ToniyaSundaram/raiden-token/internal/deployer"
	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
	"github.com/ToniyaSundaram/raiden-token/internal/observability"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
	chstore "github.com/ToniyaSundaram/raiden-token/internal/storage/clickhouse"
	"github.com/ToniyaSundaram/raiden-token/internal/storage/memory"
	"github.com/ToniyaSundaram/raiden-token/internal/storage/migrations"
	pgstore "github.com/ToniyaSundaram/raiden-token/internal/storage/postgres"
)

// cliOptions carries the parsed command line.
type cliOptions struct {
	chain        string
	chainsConfig string
	rpcURL       string

	owner         string
	supply        int64
	priceFactor   int64
	priceConstant int64
	pricePoints   string

	preallocAddresses string
	preallocAmounts   string

	simulation  bool
	bidders     int
	bids        int
	bidPrice    string
	bidInterval time.Duration

	artifacts      string
	postgresDSN    string
	clickhouseDSN  string
	confirmTimeout time.Duration
}

func main() {
	// Parse flags
	var opt cliOptions
	flag.StringVar(&opt.chain, "chain", "kovan", "Chain to deploy on: kovan | ropsten | rinkeby | tester | privtest")
	flag.StringVar(&opt.chainsConfig, "chains-config", "", "YAML chain registry merged over the builtin entries")
	flag.StringVar(&opt.rpcURL, "rpc-url", "", "JSON-RPC endpoint override for the selected chain")
	flag.StringVar(&opt.owner, "owner", "", "Contracts owner, default: the node's first account")
	flag.Int64Var(&opt.supply, "supply", 10_000_000, "Token contract supply (number of total issued tokens)")
	flag.Int64Var(&opt.priceFactor, "price-factor", 6, "Price factor used in auction price calculation")
	flag.Int64Var(&opt.priceConstant, "price-constant", 66, "Price constant used in auction price calculation")
	flag.StringVar(&opt.pricePoints, "price-points", "", `2 price points "price1_in_wei,elapsed_seconds1,price2_in_wei,elapsed_seconds2" used to calculate the price factor and constant for the auction price function. Example: "100000000000000000,0,10000000000000000,600"`)
	flag.StringVar(&opt.preallocAddresses, "prealloc-addresses", "", "Addresses separated by a comma, for preallocating tokens")
	flag.StringVar(&opt.preallocAmounts, "prealloc-amounts", "", "Token amounts in Tei separated by a comma, for preallocating tokens")
	flag.BoolVar(&opt.simulation, "simulation", false, "Run auction simulation")
	flag.IntVar(&opt.bidders, "bidders", 10, "Number of bidders. Only if the --simulation flag is set")
	flag.IntVar(&opt.bids, "bids", 10, "Number of bids. Only if the --simulation flag is set")
	flag.StringVar(&opt.bidPrice, "bid-price", "50000000000000000", "Price per TKN in WEI at which the first bid should start, empty to bid immediately. Only if the --simulation flag is set")
	flag.DurationVar(&opt.bidInterval, "bid-interval", 5*time.Second, "Time interval between bids. Only if the --simulation flag is set")
	flag.StringVar(&opt.artifacts, "artifacts", "build/contracts.json", "Compiled contract artifacts (solc combined JSON)")
	flag.StringVar(&opt.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string for deployment and bid records (empty keeps records in memory)")
	flag.StringVar(&opt.clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string for price samples (empty keeps samples in memory)")
	flag.DurationVar(&opt.confirmTimeout, "confirm-timeout", chain.DefaultReceiptTimeout, "How long to wait for a transaction to be mined")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[deploy] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals: first cancels the run, second forces exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, aborting the run...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, opt)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
}

// run resolves the chain, wires the stores, and executes one deployment.
func run(ctx context.Context, logger *log.Logger, opt cliOptions) error {
	// Resolve the target chain
	registry := config.Builtin()
	if opt.chainsConfig != "" {
		var err error
		registry, err = config.Load(opt.chainsConfig)
		if err != nil {
			return err
		}
	}
	chainCfg, err := registry.Lookup(opt.chain)
	if err != nil {
		return err
	}
	if opt.rpcURL != "" {
		chainCfg.HTTPURL = opt.rpcURL
	}

	cfg, err := buildConfig(chainCfg, opt)
	if err != nil {
		return err
	}

	artifacts, err := contracts.LoadRegistry(opt.artifacts)
	if err != nil {
		return err
	}
	if art, err := artifacts.Get("DutchAuction"); err == nil {
		if meta, err := contracts.DecodeMetadata(art.Bytecode); err == nil && meta.SolcVersion != "" {
			logger.Printf("Auction artifact compiled with solc %s", meta.SolcVersion)
		}
	}

	rpc := ethrpc.NewHTTPClient(chainCfg.HTTPURL)
	gw := chain.NewClient(rpc, chain.Options{
		ReceiptTimeout: opt.confirmTimeout,
		GasLimit:       chainCfg.GasLimit,
	})

	// Refuse to deploy against the wrong network
	if chainCfg.NetworkID != "" {
		netID, err := rpc.NetVersion(ctx)
		if err != nil {
			return fmt.Errorf("read net_version: %w", err)
		}
		if netID != chainCfg.NetworkID {
			return fmt.Errorf("connected to network %s, expected %s for chain %s", netID, chainCfg.NetworkID, chainCfg.Name)
		}
	}

	// Stores default to in-memory; DSNs swap in the real backends.
	var (
		deployments storage.DeploymentStore  = memory.NewDeploymentStore()
		bids        storage.BidRecordStore   = memory.NewBidRecordStore()
		samples     storage.PriceSampleStore = memory.NewPriceSampleStore()
	)

	if opt.postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, opt.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply postgres migrations: %w", err)
		}
		deployments = pgstore.NewDeploymentStore(pool)
		bids = pgstore.NewBidRecordStore(pool)
	}

	if opt.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, opt.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("prepare clickhouse: %w", err)
		}
		defer conn.Close()
		samples = chstore.NewPriceSampleStore(conn)
	}

	d, err := deployer.New(cfg, deployer.Options{
		Gateway:     gw,
		Accounts:    gw,
		Artifacts:   artifacts,
		Deployments: deployments,
		Bids:        bids,
		Samples:     samples,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	result, err := d.Run(ctx)
	if err != nil {
		return err
	}

	logger.Printf("Deployment %s recorded", result.DeploymentID)
	return nil
}

// buildConfig translates the command line into a deployer config.
func buildConfig(chainCfg config.Chain, opt cliOptions) (deployer.Config, error) {
	cfg := deployer.Config{
		Chain:         chainCfg,
		Supply:        opt.supply,
		PriceFactor:   big.NewInt(opt.priceFactor),
		PriceConstant: big.NewInt(opt.priceConstant),
		PricePoints:   opt.pricePoints,
		Simulate:      opt.simulation,
		BidderCount:   opt.bidders,
		BidCount:      opt.bids,
		BidInterval:   opt.bidInterval,
	}

	if opt.owner != "" {
		if !common.IsHexAddress(opt.owner) {
			return deployer.Config{}, fmt.Errorf("invalid owner address %q", opt.owner)
		}
		cfg.Owner = common.HexToAddress(opt.owner)
	}

	addrs, err := parseAddressList(opt.preallocAddresses)
	if err != nil {
		return deployer.Config{}, fmt.Errorf("parse prealloc addresses: %w", err)
	}
	cfg.PreallocAddresses = addrs

	amounts, err := parseAmountList(opt.preallocAmounts)
	if err != nil {
		return deployer.Config{}, fmt.Errorf("parse prealloc amounts: %w", err)
	}
	cfg.PreallocAmounts = amounts

	if opt.simulation && opt.bidPrice != "" {
		price, ok := new(big.Int).SetString(opt.bidPrice, 10)
		if !ok {
			return deployer.Config{}, fmt.Errorf("invalid bid price %q", opt.bidPrice)
		}
		cfg.BidStartPrice = price
	}

	return cfg, nil
}

func parseAddressList(s string) ([]common.Address, error) {
	if s == "" {
		return nil, nil
	}
	var out []common.Address
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !common.IsHexAddress(part) {
			return nil, fmt.Errorf("invalid address %q", part)
		}
		out = append(out, common.HexToAddress(part))
	}
	return out, nil
}

func parseAmountList(s string) ([]*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	var out []*big.Int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		amount, ok := new(big.Int).SetString(part, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q", part)
		}
		out = append(out, amount)
	}
	return out, nil
}
