// Server = store + token custody + escrow engine + event publisher + http reporter.
// All components are configured via environment variables or a config file (strings!).

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/TEENet-io/htlc-go/common"
	"github.com/TEENet-io/htlc-go/database"
	"github.com/TEENet-io/htlc-go/etherman"
	"github.com/TEENet-io/htlc-go/htlc"
	"github.com/TEENet-io/htlc-go/metrics"
	"github.com/TEENet-io/htlc-go/publisher"
	"github.com/TEENet-io/htlc-go/reporter"
	"github.com/TEENet-io/htlc-go/state"
	"github.com/TEENet-io/htlc-go/token"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	CUSTODIAN_LEDGER   = "ledger"
	CUSTODIAN_ETHEREUM = "ethereum"

	CLOCK_SYSTEM = "system"
	CLOCK_CHAIN  = "chain"

	// publisher-observer config
	CHANNEL_BUFFER_SIZE = 10
)

var (
	ErrUnknownCustodian   = errors.New("CUSTODIAN must be ledger or ethereum")
	ErrUnknownClock       = errors.New("CLOCK_SOURCE must be system or chain")
	ErrChainClockNoChain  = errors.New("chain clock requires the ethereum custodian")
	ErrSharedDatabaseFile = errors.New("escrow store and ledger need separate database files")
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type HtlcServerConfig struct {
	// state side
	DbFilePath       string // escrow records and events, empty for in-memory
	LedgerDbFilePath string // token ledger (ledger custody only), empty for in-memory

	// custody side
	Custodian            string // ledger | ethereum
	EscrowAccount        string // escrow account of the ledger
	EthRpcUrl            string // json rpc url
	EthEscrowAccountPriv string // private key of the escrow account on chain
	EthTxTimeout         time.Duration
	Genesis              []token.GenesisAlloc // ledger allocations applied once

	ClockSource string // system | chain

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// HtlcServer holds the objects that consists of the escrow server.
type HtlcServer struct {
	MyStateDb   *state.StateDB
	MyLedger    *token.LedgerDB    // ledger custody only
	MyEtherman  *etherman.Etherman // ethereum custody only
	MyEngine    *htlc.Engine
	MyPublisher *publisher.PublisherService
	MyMetrics   *metrics.Collector
	MyReporter  *reporter.HttpReporter

	metricsCh chan *htlc.Event
	closers   []func()
}

// NewHtlcServer assembles the server. Nothing runs until Run is called.
func NewHtlcServer(cfg *HtlcServerConfig) (srv *HtlcServer, err error) {
	s := &HtlcServer{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	// escrow store
	sqldb, err := database.OpenSQLite(cfg.DbFilePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db file %s", cfg.DbFilePath)
	}
	s.closers = append(s.closers, func() { sqldb.Close() })

	s.MyStateDb, err = state.NewStateDB(sqldb)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create state db")
	}
	s.closers = append(s.closers, s.MyStateDb.Close)

	// custody
	var (
		registry *token.Registry
		escrow   ethcommon.Address
	)
	switch cfg.Custodian {
	case CUSTODIAN_LEDGER, "":
		registry, escrow, err = s.setupLedger(cfg)
	case CUSTODIAN_ETHEREUM:
		registry, escrow, err = s.setupEthereum(cfg)
	default:
		err = errors.Wrapf(ErrUnknownCustodian, "got %q", cfg.Custodian)
	}
	if err != nil {
		return nil, err
	}

	// clock
	var clock htlc.Clock
	switch cfg.ClockSource {
	case CLOCK_SYSTEM, "":
		clock = htlc.NewSystemClock()
	case CLOCK_CHAIN:
		if s.MyEtherman == nil {
			return nil, ErrChainClockNoChain
		}
		clock = etherman.NewChainClock(s.MyEtherman)
	default:
		return nil, errors.Wrapf(ErrUnknownClock, "got %q", cfg.ClockSource)
	}

	// events: log every event, count them in metrics
	s.MyMetrics = metrics.NewCollector()
	s.MyPublisher = publisher.NewPublisherService()
	s.metricsCh = make(chan *htlc.Event, CHANNEL_BUFFER_SIZE)
	s.MyPublisher.RegisterObserver(s.metricsCh)

	s.MyEngine, err = htlc.NewEngine(&htlc.Config{
		Store:      s.MyStateDb,
		Custodians: registry,
		Clock:      clock,
		Sink:       publisher.MultiSink{publisher.LogSink{}, s.MyPublisher},
		Recorder:   s.MyMetrics,
	})
	if err != nil {
		return nil, err
	}

	s.MyReporter = reporter.NewHttpReporter(cfg.HttpIp, cfg.HttpPort, s.MyEngine, registry, escrow).
		WithMetrics(s.MyMetrics)
	if s.MyLedger != nil {
		s.MyReporter.WithLedger(s.MyLedger)
	}

	logger.WithFields(logger.Fields{
		"custodian": cfg.Custodian,
		"clock":     cfg.ClockSource,
		"escrow":    escrow.Hex(),
	}).Info("htlc server assembled")

	return s, nil
}

func (s *HtlcServer) setupLedger(cfg *HtlcServerConfig) (*token.Registry, ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(cfg.EscrowAccount) {
		return nil, ethcommon.Address{}, fmt.Errorf("invalid ESCROW_ACCOUNT %q", cfg.EscrowAccount)
	}
	escrow := ethcommon.HexToAddress(cfg.EscrowAccount)

	if cfg.LedgerDbFilePath != "" && cfg.LedgerDbFilePath == cfg.DbFilePath {
		return nil, ethcommon.Address{}, ErrSharedDatabaseFile
	}
	ledgerdb, err := database.OpenSQLite(cfg.LedgerDbFilePath)
	if err != nil {
		return nil, ethcommon.Address{}, errors.Wrapf(err, "failed to open ledger db file %s", cfg.LedgerDbFilePath)
	}
	s.closers = append(s.closers, func() { ledgerdb.Close() })

	s.MyLedger, err = token.NewLedgerDB(ledgerdb)
	if err != nil {
		return nil, ethcommon.Address{}, errors.Wrap(err, "failed to create ledger")
	}
	s.closers = append(s.closers, s.MyLedger.Close)

	minted, err := s.MyLedger.ApplyGenesis(cfg.Genesis)
	if err != nil {
		return nil, ethcommon.Address{}, errors.Wrap(err, "failed to apply genesis")
	}
	if minted {
		logger.WithField("allocs", len(cfg.Genesis)).Info("genesis applied")
	}

	return token.NewRegistry(token.LedgerFactory(s.MyLedger, escrow)), escrow, nil
}

func (s *HtlcServer) setupEthereum(cfg *HtlcServerConfig) (*token.Registry, ethcommon.Address, error) {
	sk, err := common.StringToPrivateKey(cfg.EthEscrowAccountPriv)
	if err != nil {
		return nil, ethcommon.Address{}, errors.Wrap(err, "failed to load escrow private key")
	}

	s.MyEtherman, err = etherman.NewEtherman(&etherman.Config{
		URL:              cfg.EthRpcUrl,
		EscrowPrivateKey: sk,
		TxTimeout:        cfg.EthTxTimeout,
	})
	if err != nil {
		return nil, ethcommon.Address{}, err
	}
	s.closers = append(s.closers, s.MyEtherman.Close)

	return token.NewRegistry(s.MyEtherman.Custodian), s.MyEtherman.EscrowAccount(), nil
}

// Run serves http and feeds metrics until ctx is done or a component fails.
func (s *HtlcServer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.MyReporter.Run(ctx)
	})
	g.Go(func() error {
		return s.MyMetrics.Run(ctx, s.metricsCh)
	})
	return g.Wait()
}

// Close releases the databases and the chain connection, in reverse order
// of creation.
func (s *HtlcServer) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Create, then start the escrow server and wait.
// Press Ctrl-C to kill the server.
func StartHtlcServerAndWait(cfg *HtlcServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	srv, err := NewHtlcServer(cfg)
	if err != nil {
		logger.Fatalf("failed to create htlc server: %v", err)
		return
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("htlc server stopped: %v", err)
		return
	}
	logger.Info("htlc server stopped")
}
