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
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/ToniyaSundaram/raiden-token/internal/chain"
	"github.com/ToniyaSundaram/raiden-token/internal/config"
	"github.com/ToniyaSundaram/raiden-token/internal/contracts"
	"github.com/ToniyaSundaram/raiden-token/internal/domain"
	"github.com/ToniyaSundaram/raiden-token/internal/ethrpc"
	"github.com/ToniyaSundaram/raiden-token/internal/observability"
	"github.com/ToniyaSundaram/raiden-token/internal/storage"
	chstore "github.com/ToniyaSundaram/raiden-token/internal/storage/clickhouse"
	"github.com/ToniyaSundaram/raiden-token/internal/storage/memory"
	"github.com/ToniyaSundaram/raiden-token/internal/storage/migrations"
	"github.com/ToniyaSundaram/raiden-token/internal/units"
)

func main() {
	// Parse flags
	chainName := flag.String("chain", "kovan", "Chain the auction runs on: kovan | ropsten | rinkeby | tester | privtest")
	chainsConfig := flag.String("chains-config", "", "YAML chain registry merged over the builtin entries")
	rpcURL := flag.String("rpc-url", "", "JSON-RPC endpoint override for the selected chain")
	wsURL := flag.String("ws-url", "", "WebSocket endpoint override for the selected chain")
	auctionAddr := flag.String("auction", "", "Deployed auction contract address to watch")
	deploymentID := flag.String("deployment-id", "", "Deployment id the samples belong to (empty starts a fresh series)")
	interval := flag.Duration("interval", 0, "Fixed sampling interval; zero samples on every new block instead")
	duration := flag.Duration("duration", 0, "Stop watching after this long (zero watches until the auction ends or a signal arrives)")
	artifacts := flag.String("artifacts", "build/contracts.json", "Compiled contract artifacts (solc combined JSON)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for price samples (empty keeps samples in memory)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile)

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

	// Handle shutdown signals: first stops the watch, second forces exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, stopping the watch...", sig)
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

	err := run(ctx, logger, *chainName, *chainsConfig, *rpcURL, *wsURL, *auctionAddr,
		*deploymentID, *artifacts, *clickhouseDSN, *interval, *duration)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
}

// run resolves the chain and auction, then samples the price curve until
// the auction ends, the duration elapses, or the context is canceled.
func run(ctx context.Context, logger *log.Logger, chainName, chainsConfig, rpcURL, wsURL, auctionHex,
	deploymentID, artifactsPath, clickhouseDSN string, interval, duration time.Duration) error {

	// Resolve the target chain
	registry := config.Builtin()
	if chainsConfig != "" {
		var err error
		registry, err = config.Load(chainsConfig)
		if err != nil {
			return err
		}
	}
	chainCfg, err := registry.Lookup(chainName)
	if err != nil {
		return err
	}
	if rpcURL != "" {
		chainCfg.HTTPURL = rpcURL
	}
	if wsURL != "" {
		chainCfg.WSURL = wsURL
	}

	if !common.IsHexAddress(auctionHex) {
		return fmt.Errorf("--auction must be a contract address, got %q", auctionHex)
	}
	auctionAddr := common.HexToAddress(auctionHex)

	artifacts, err := contracts.LoadRegistry(artifactsPath)
	if err != nil {
		return err
	}
	auctionArt, err := artifacts.Get("DutchAuction")
	if err != nil {
		return err
	}

	rpc := ethrpc.NewHTTPClient(chainCfg.HTTPURL)
	gw := chain.NewClient(rpc, chain.Options{})

	// Refuse to watch the wrong network
	if chainCfg.NetworkID != "" {
		netID, err := rpc.NetVersion(ctx)
		if err != nil {
			return fmt.Errorf("read net_version: %w", err)
		}
		if netID != chainCfg.NetworkID {
			return fmt.Errorf("connected to network %s, expected %s for chain %s", netID, chainCfg.NetworkID, chainCfg.Name)
		}
	}

	// Create the sample store
	var samples storage.PriceSampleStore = memory.NewPriceSampleStore()
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return fmt.Errorf("prepare clickhouse: %w", err)
		}
		defer conn.Close()
		samples = chstore.NewPriceSampleStore(conn)
	}

	if deploymentID == "" {
		deploymentID = uuid.NewString()
	}
	logger.Printf("Watching auction %s on %s, recording samples under deployment id %s",
		auctionAddr.Hex(), chainCfg.Name, deploymentID)

	// Pick the sampling trigger: a fixed ticker, or one sample per new block
	var ticks <-chan time.Time
	var heads <-chan ethrpc.Head
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		ticks = ticker.C
		logger.Printf("Sampling every %s", interval)
	} else {
		if chainCfg.WSURL == "" {
			return fmt.Errorf("chain %s exposes no WebSocket endpoint; pass --ws-url or a fixed --interval", chainCfg.Name)
		}
		ws, err := ethrpc.NewWSClient(ctx, chainCfg.WSURL, nil)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()
		heads, err = ws.SubscribeNewHeads(ctx)
		if err != nil {
			return fmt.Errorf("subscribe to new heads: %w", err)
		}
		logger.Printf("Sampling on every new block")
	}

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	w := &watcher{
		auction:       contracts.NewDutchAuction(gw, auctionArt.ABI, auctionAddr),
		samples:       samples,
		deploymentID:  deploymentID,
		logger:        logger,
		nonIncreasing: true,
		lastMs:        -1,
	}

	runErr := w.loop(ctx, heads, ticks, deadline)
	w.summary()
	return runErr
}

// watcher records one auction's observed price curve.
type watcher struct {
	auction      *contracts.DutchAuction
	samples      storage.PriceSampleStore
	deploymentID string
	logger       *log.Logger

	runStart      time.Time
	lastMs        int64
	first         *big.Int
	prev          *big.Int
	count         int
	nonIncreasing bool
}

// loop samples immediately, then once per trigger, until the auction ends
// or a stop condition fires.
func (w *watcher) loop(ctx context.Context, heads <-chan ethrpc.Head, ticks <-chan time.Time, deadline <-chan time.Time) error {
	for {
		if err := w.sample(ctx); err != nil {
			return err
		}

		ended, err := w.auction.Ended(ctx)
		if err != nil {
			return fmt.Errorf("check auction stage: %w", err)
		}
		if ended {
			w.logger.Printf("Auction ended")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return nil
		case _, ok := <-heads:
			if !ok {
				return errors.New("head subscription closed")
			}
		case <-ticks:
		}
	}
}

// sample reads the price once and appends it to the curve. Several
// triggers inside one millisecond collapse into a single sample.
func (w *watcher) sample(ctx context.Context) error {
	price, err := w.auction.Price(ctx)
	if err != nil {
		return fmt.Errorf("read price: %w", err)
	}

	now := time.Now()
	if w.count == 0 {
		w.runStart = now
		w.first = price
	}

	ms := now.UnixMilli()
	if ms == w.lastMs {
		return nil
	}

	elapsed := int64(now.Sub(w.runStart) / time.Second)
	err = w.samples.InsertBulk(ctx, []*domain.PriceSample{{
		DeploymentID: w.deploymentID,
		TimestampMs:  ms,
		ElapsedSec:   elapsed,
		PriceWei:     price.String(),
	}})
	if err != nil {
		return fmt.Errorf("record price sample: %w", err)
	}
	w.lastMs = ms

	observability.SetAuctionPrice(price)
	observability.RecordPriceSamples(1)

	w.logger.Printf("Price at elapsed %ds is %s WEI %s ETH", elapsed, price, units.EtherString(price))
	if w.prev != nil && price.Cmp(w.prev) > 0 {
		w.logger.Printf("Warning: price increased from %s to %s WEI", w.prev, price)
		w.nonIncreasing = false
	}

	w.prev = price
	w.count++
	return nil
}

// summary prints the observed trajectory once the watch stops.
func (w *watcher) summary() {
	if w.count == 0 {
		w.logger.Printf("No price samples were recorded")
		return
	}
	decay := new(big.Int).Sub(w.first, w.prev)
	w.logger.Printf("Watched %d samples, price %s -> %s WEI, total decay %s WEI",
		w.count, w.first, w.prev, decay)
	if !w.nonIncreasing {
		w.logger.Printf("Warning: observed prices increased during the watch")
	}
}
