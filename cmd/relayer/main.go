// Package main runs the batch relayer engine daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/keycache"
	"github.com/goodnatureofminers/batchrelay-backend/internal/metrics"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/gas"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/repository/clickhouse"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/repository/postgres"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/retrier"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/committer"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/dispatcher"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/drainer"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/engine"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/provisioner"
	"github.com/goodnatureofminers/batchrelay-backend/internal/secret"
)

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("batch relayer failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	amt, err := cfg.amounts()
	if err != nil {
		return err
	}

	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	repo, err := postgres.NewRepository(ctx, cfg.PostgresDSN, metrics.NewPostgresRepository())
	if err != nil {
		return fmt.Errorf("init postgres repository: %w", err)
	}
	defer repo.Close()

	var audit dispatcher.AuditSink
	if cfg.ClickhouseDSN != "" {
		auditRepo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init clickhouse repository: %w", err)
		}
		defer func() {
			if err := auditRepo.Close(); err != nil {
				logger.Warn("failed to close clickhouse repository", zap.Error(err))
			}
		}()
		audit = auditRepo
	} else {
		logger.Warn("dispatch audit log disabled")
	}

	backend, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}
	defer backend.Close()

	client, err := chain.NewObservedClient(backend, ratelimit.New(cfg.RPCRate), metrics.NewRPCClient(cfg.ChainName))
	if err != nil {
		return err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	signer, err := chain.NewSigner(chainID)
	if err != nil {
		return err
	}
	contracts, err := chain.NewContracts()
	if err != nil {
		return err
	}
	var subscriber chain.HeadSubscriber
	if streaming(cfg.RPCURL) {
		subscriber = client
	}
	heads := chain.NewHeads(subscriber, logger)
	waiter := chain.NewWaiter(client, heads, cfg.ReceiptPoll)
	locks := chain.NewAccountLocks()

	pricer, err := gas.NewPolicy(amt.gas, client, metrics.NewGasPolicy())
	if err != nil {
		return fmt.Errorf("init gas policy: %w", err)
	}
	retry, err := retrier.NewController(retrier.Config{
		MaxRetries:        cfg.MaxRetries,
		TransientAttempts: cfg.TransientAttempts,
		TransientDelay:    cfg.TransientDelay,
		MaxTransientDelay: cfg.MaxTransientDelay,
	}, metrics.NewRetrier())
	if err != nil {
		return fmt.Errorf("init retrier: %w", err)
	}

	secrets, err := secret.NewClient(secret.Config{
		Address:    cfg.VaultAddr,
		Token:      cfg.VaultToken,
		Mount:      cfg.VaultMount,
		MaxRetries: cfg.VaultMaxRetries,
		Timeout:    cfg.VaultTimeout,
	}, metrics.NewSecretManager())
	if err != nil {
		return fmt.Errorf("init secret manager client: %w", err)
	}
	keys, err := keycache.New(keycache.Config{
		Size: cfg.KeyCacheSize,
		TTL:  cfg.KeyCacheTTL,
	}, secrets, secrets, metrics.NewKeyCache(), logger.Named("keycache"))
	if err != nil {
		return fmt.Errorf("init key cache: %w", err)
	}

	commit, err := committer.New(repo, client, pricer, keys, waiter, signer, contracts, locks,
		metrics.NewCommitter(), logger, committer.Config{
			TreeCacheSize:   cfg.TreeCacheSize,
			GasHeadroomBips: amt.headroom,
			ConfirmTimeout:  cfg.ConfirmTimeout,
		})
	if err != nil {
		return fmt.Errorf("init committer: %w", err)
	}
	provision, err := provisioner.New(repo, client, pricer, keys, secrets, waiter, signer, contracts, locks,
		metrics.NewProvisioner(), logger, provisioner.Config{
			MaxPoolSize:     cfg.MaxPoolSize,
			GasHeadroomBips: amt.headroom,
			ConfirmTimeout:  cfg.ConfirmTimeout,
		})
	if err != nil {
		return fmt.Errorf("init provisioner: %w", err)
	}
	dispatchMetrics := metrics.NewDispatcher()
	dispatch, err := dispatcher.New(repo, client, pricer, commit, keys, waiter, retry, signer, audit,
		dispatchMetrics, logger, dispatcher.Config{
			ConfirmTimeout:  cfg.ConfirmTimeout,
			GasHeadroomBips: amt.headroom,
			Audit: dispatcher.AuditConfig{
				FlushSize:     cfg.AuditFlushSize,
				FlushInterval: cfg.AuditFlushEvery,
			},
		})
	if err != nil {
		return fmt.Errorf("init dispatcher: %w", err)
	}
	reconciler, err := dispatcher.NewReconciler(repo, client, commit, dispatchMetrics, logger, dispatcher.ReconcilerConfig{
		Interval:          cfg.ReconcileInterval,
		StaleSendingAfter: cfg.StaleSendingAfter,
		StaleWaitingAfter: 2 * cfg.ConfirmTimeout,
	})
	if err != nil {
		return fmt.Errorf("init reconciler: %w", err)
	}
	drain, err := drainer.New(repo, client, pricer, keys, waiter, signer, metrics.NewDrainer(), logger, drainer.Config{
		DustThreshold:  amt.dust,
		ToFunder:       cfg.DrainToFunder,
		WorkerCount:    cfg.DrainWorkers,
		ConfirmTimeout: cfg.ConfirmTimeout,
	})
	if err != nil {
		return fmt.Errorf("init drainer: %w", err)
	}
	eng, err := engine.New(repo, commit, provision, dispatch, reconciler, drain, metrics.NewEngine(), logger, engine.Config{
		RelayersPerBatch:  cfg.RelayersPerBatch,
		FundingPerRelayer: amt.funding,
		PollInterval:      cfg.PollInterval,
		RoundInterval:     cfg.RoundInterval,
		MaxBatches:        cfg.MaxBatches,
	})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				logger.Error("background task stopped", zap.String("task", name), zap.Error(err))
			}
		}()
	}
	background("heads", heads.Run)
	background("keycache", keys.Run)

	dispatch.Start(ctx)
	logger.Info("batch relayer started",
		zap.String("chain_id", chainID.String()),
		zap.Int("relayers_per_batch", cfg.RelayersPerBatch),
		zap.Int("max_batches", cfg.MaxBatches))

	eng.Run(ctx)

	dispatch.Stop()
	wg.Wait()
	logger.Info("batch relayer stopped")
	return nil
}

// streaming reports whether rawURL supports subscriptions.
func streaming(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Scheme == "ws" || parsed.Scheme == "wss"
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
