// Package bridge assembles the swap bridge service from its parts and owns
// their lifecycle.
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/stxbridge/bridger/pkg/circuitbreaker"
	"github.com/stxbridge/bridger/pkg/config"
	"github.com/stxbridge/bridger/pkg/etnclient"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/monitor"
	"github.com/stxbridge/bridger/pkg/orchestrator"
	"github.com/stxbridge/bridger/pkg/registry"
	"github.com/stxbridge/bridger/pkg/server"
	"github.com/stxbridge/bridger/pkg/stacks"
	"github.com/stxbridge/bridger/pkg/store"
)

// Service is the assembled bridge: source-chain polling, order persistence,
// destination execution, and the HTTP surface.
type Service struct {
	config     *config.Config
	logger     logger.Logger
	store      store.OrderStore
	etnClient  *etnclient.Client
	monitor    *monitor.Monitor
	httpServer *server.Server
}

// NewService wires the bridge from configuration. It connects to the order
// store and the destination RPC; failures there abort startup.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	log := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	reg, err := registry.New(cfg.Assets)
	if err != nil {
		return nil, fmt.Errorf("failed to build asset registry: %w", err)
	}

	var orderStore store.OrderStore
	switch cfg.StoreBackend {
	case "memory":
		log.Notice("Using in-memory order store, orders will not survive a restart")
		orderStore = store.NewMemoryStore()
	default:
		mongoStore, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open order store: %w", err)
		}
		orderStore = mongoStore
	}

	breaker := circuitbreaker.NewCircuitBreaker(
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
		log,
	)

	etnClient, err := etnclient.NewClient(
		cfg.EtnRPCURL,
		cfg.EtnChainID,
		cfg.PrivateKey,
		reg,
		breaker,
		cfg.ExecutionTimeout,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination client: %w", err)
	}

	stacksClient := stacks.NewClient(cfg.StacksAPIURL, cfg.ContractAddress, cfg.ContractName, log)
	poller := stacks.NewPoller(stacksClient, cfg.ConfirmationInterval, cfg.ConfirmationAttempts, log)

	orch := orchestrator.New(stacksClient, orderStore, []orchestrator.Executor{etnClient}, cfg.FeeBps, log)

	svc := &Service{
		config:    cfg,
		logger:    log,
		store:     orderStore,
		etnClient: etnClient,
	}

	if cfg.MonitorEnabled {
		svc.monitor = monitor.New(stacksClient, cfg.MonitorInterval, log)
	}

	contractID := cfg.ContractAddress + "." + cfg.ContractName
	svc.httpServer = server.NewServer(cfg.Port, orch, poller, breaker, reg, contractID, log)

	return svc, nil
}

// logWalletBalances reads and logs the payout wallet's balance for every
// configured asset. Failures are logged and skipped so a flaky RPC cannot
// block startup.
func (s *Service) logWalletBalances(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, asset := range s.config.Assets {
		balance, symbol, err := s.etnClient.TokenBalance(ctx, asset.Symbol)
		if err != nil {
			s.logger.NoticeWithChain("electroneum", "Could not read wallet balance for %s: %v", asset.Symbol, err)
			continue
		}
		s.logger.InfoWithChain("electroneum", "Wallet balance: %s %s (smallest units)", balance.String(), symbol)
	}
}

// Start runs the service until the context is cancelled, then shuts down
// gracefully.
func (s *Service) Start(ctx context.Context) error {
	if s.monitor != nil {
		s.monitor.Start(ctx)
	}
	go s.logWalletBalances(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Start()
	}()

	select {
	case err := <-errCh:
		s.shutdown()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown failed: %v", err)
	}
	s.shutdown()
	return nil
}

func (s *Service) shutdown() {
	if s.monitor != nil {
		s.monitor.Stop()
	}
	s.etnClient.Close()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Close(closeCtx); err != nil {
		s.logger.Error("Order store close failed: %v", err)
	}
}
