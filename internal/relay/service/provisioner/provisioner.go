// Package provisioner creates, stores and funds the relayer pool of a batch.
package provisioner

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/units"
	"github.com/goodnatureofminers/batchrelay-backend/internal/secret"
)

var (
	// ErrInsufficientFaucetBalance is returned before any write when the faucet
	// cannot cover the pool funding plus the funding fee.
	ErrInsufficientFaucetBalance = errors.New("insufficient faucet balance")
	// ErrNotCreated is returned for a batch that already left the created state.
	ErrNotCreated = errors.New("batch is not in created state")
	// ErrPoolSize is returned for a pool size outside 1..MaxPoolSize.
	ErrPoolSize = errors.New("invalid relayer pool size")
)

const (
	relayerKeyKind = "relayer"

	outcomeFunded       = "funded"
	outcomeInsufficient = "insufficient_balance"
	outcomeSetupFailed  = "setup_failed"
	outcomeRejected     = "rejected"

	defaultMaxPoolSize  = 100
	defaultHeadroomBips = 12_000
	defaultFundTimeout  = 3 * time.Minute
	cleanupTimeout      = 30 * time.Second
)

// Config bounds provisioning.
type Config struct {
	MaxPoolSize int
	// GasHeadroomBips scales the funding gas estimate.
	GasHeadroomBips int64
	ConfirmTimeout  time.Duration
}

// Service provisions relayer pools.
type Service struct {
	repo      Repository
	chain     Chain
	pricer    Pricer
	keys      Keys
	secrets   SecretStore
	waiter    Waiter
	signer    *chain.Signer
	contracts *chain.Contracts
	locks     *chain.AccountLocks
	metrics   Metrics
	logger    *zap.Logger
	cfg       Config
	newKey    func() (*ecdsa.PrivateKey, error)
}

// New builds a provisioning Service.
func New(
	repo Repository,
	client Chain,
	pricer Pricer,
	keys Keys,
	secrets SecretStore,
	waiter Waiter,
	signer *chain.Signer,
	contracts *chain.Contracts,
	locks *chain.AccountLocks,
	metrics Metrics,
	logger *zap.Logger,
	cfg Config,
) (*Service, error) {
	if metrics == nil {
		return nil, errors.New("provisioner metrics is required")
	}
	if signer == nil || contracts == nil || locks == nil {
		return nil, errors.New("signer, contracts and account locks are required")
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = defaultMaxPoolSize
	}
	if cfg.GasHeadroomBips <= 0 {
		cfg.GasHeadroomBips = defaultHeadroomBips
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultFundTimeout
	}
	return &Service{
		repo:      repo,
		chain:     client,
		pricer:    pricer,
		keys:      keys,
		secrets:   secrets,
		waiter:    waiter,
		signer:    signer,
		contracts: contracts,
		locks:     locks,
		metrics:   metrics,
		logger:    logger.Named("provisioner"),
		cfg:       cfg,
		newKey:    crypto.GenerateKey,
	}, nil
}

type fundingPlan struct {
	batch    model.Batch
	faucet   model.Faucet
	key      *ecdsa.PrivateKey
	relayers []model.Relayer
	keys     []*ecdsa.PrivateKey
	data     []byte
	total    *big.Int
	gasLimit uint64
	gasPrice *big.Int
}

// Provision creates count relayers for batchID, stores their keys and funds each
// with amountEach in a single funding transaction. Nothing is written when the
// faucet cannot pay for the whole pool. When funding fails the relayers stay
// unusable and the batch becomes setup_failed.
func (s *Service) Provision(ctx context.Context, batchID int64, count int, amountEach *big.Int) ([]model.Relayer, error) {
	logger := s.logger.With(zap.Int64("batch_id", batchID), zap.Int("relayers", count))

	plan, err := s.plan(ctx, batchID, count, amountEach)
	if err != nil {
		if errors.Is(err, ErrInsufficientFaucetBalance) {
			s.metrics.ObserveProvision(outcomeInsufficient, count)
		} else {
			s.metrics.ObserveProvision(outcomeRejected, count)
		}
		return nil, err
	}

	if err := s.repo.SetBatchStatus(ctx, batchID, model.BatchCreated, model.BatchProvisioning, ""); err != nil {
		s.metrics.ObserveProvision(outcomeRejected, count)
		return nil, fmt.Errorf("start provisioning: %w", err)
	}

	relayers, err := s.register(ctx, plan)
	if err != nil {
		s.setupFailed(ctx, logger, batchID, count, false, err)
		return nil, err
	}

	receipt, err := s.fund(ctx, plan)
	if err != nil {
		s.setupFailed(ctx, logger, batchID, count, true, err)
		return nil, err
	}

	if _, err := s.repo.SetRelayersStatus(ctx, batchID, model.RelayerRegistered, model.RelayerActive); err != nil {
		return nil, fmt.Errorf("activate relayers: %w", err)
	}
	for i := range relayers {
		relayers[i].Status = model.RelayerActive
		relayers[i].LastBalance = new(big.Int).Set(amountEach)
		if err := s.repo.UpdateRelayerBalance(ctx, relayers[i].Address, amountEach); err != nil {
			logger.Warn("record relayer balance", zap.String("relayer", relayers[i].Address.Hex()), zap.Error(err))
		}
	}
	if err := s.repo.SetBatchStatus(ctx, batchID, model.BatchProvisioning, model.BatchProcessing, ""); err != nil {
		return nil, fmt.Errorf("start processing: %w", err)
	}

	s.metrics.ObserveProvision(outcomeFunded, count)
	logger.Info("relayer pool funded",
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.String("amount_each_eth", units.FormatEther(amountEach)),
		zap.Uint64("gas_used", receipt.GasUsed))
	return relayers, nil
}

func (s *Service) plan(ctx context.Context, batchID int64, count int, amountEach *big.Int) (fundingPlan, error) {
	if count <= 0 || count > s.cfg.MaxPoolSize {
		return fundingPlan{}, fmt.Errorf("%w: %d, allowed 1..%d", ErrPoolSize, count, s.cfg.MaxPoolSize)
	}
	if amountEach == nil || amountEach.Sign() <= 0 {
		return fundingPlan{}, errors.New("funding amount must be positive")
	}

	batch, err := s.repo.Batch(ctx, batchID)
	if err != nil {
		return fundingPlan{}, fmt.Errorf("load batch: %w", err)
	}
	if batch.Status != model.BatchCreated {
		return fundingPlan{}, fmt.Errorf("%w: batch %d is %s", ErrNotCreated, batchID, batch.Status)
	}
	if batch.ChainID == nil || batch.ChainID.Cmp(s.signer.ChainID()) != 0 {
		return fundingPlan{}, fmt.Errorf("batch %d targets chain %v, signer is on %s", batchID, batch.ChainID, s.signer.ChainID())
	}
	faucet, err := s.repo.Faucet(ctx, batch.FaucetID)
	if err != nil {
		return fundingPlan{}, fmt.Errorf("load faucet: %w", err)
	}

	p := fundingPlan{
		batch:    batch,
		faucet:   faucet,
		total:    new(big.Int).Mul(amountEach, big.NewInt(int64(count))),
		relayers: make([]model.Relayer, 0, count),
		keys:     make([]*ecdsa.PrivateKey, 0, count),
	}

	balance, err := s.chain.BalanceAt(ctx, faucet.Address, nil)
	if err != nil {
		return fundingPlan{}, fmt.Errorf("faucet balance: %w", err)
	}
	if balance.Cmp(p.total) < 0 {
		return fundingPlan{}, fmt.Errorf("%w: have %s ETH, pool needs %s ETH",
			ErrInsufficientFaucetBalance, units.FormatEther(balance), units.FormatEther(p.total))
	}

	addrs := make([]common.Address, 0, count)
	for i := 0; i < count; i++ {
		key, err := s.newKey()
		if err != nil {
			return fundingPlan{}, fmt.Errorf("generate relayer key: %w", err)
		}
		addr := chain.Address(key)
		addrs = append(addrs, addr)
		p.keys = append(p.keys, key)
		p.relayers = append(p.relayers, model.Relayer{
			Address: addr,
			BatchID: batchID,
			Status:  model.RelayerRegistered,
		})
	}

	p.data, err = s.contracts.FundRelayers(addrs, amountEach)
	if err != nil {
		return fundingPlan{}, err
	}
	quote, err := s.pricer.Quote(ctx, model.ClassFunding)
	if err != nil {
		return fundingPlan{}, fmt.Errorf("price funding: %w", err)
	}
	p.gasPrice = quote.Price

	estimate, err := s.chain.EstimateGas(ctx, ethereum.CallMsg{
		From:     faucet.Address,
		To:       &batch.ContractAddress,
		GasPrice: quote.Price,
		Value:    p.total,
		Data:     p.data,
	})
	if err != nil {
		return fundingPlan{}, fmt.Errorf("estimate funding gas: %w", err)
	}
	p.gasLimit = units.GasWithHeadroom(estimate, s.cfg.GasHeadroomBips)

	fee := new(big.Int).Mul(quote.Price, new(big.Int).SetUint64(p.gasLimit))
	need := new(big.Int).Add(p.total, fee)
	if balance.Cmp(need) < 0 {
		return fundingPlan{}, fmt.Errorf("%w: have %s ETH, need %s ETH including fee",
			ErrInsufficientFaucetBalance, units.FormatEther(balance), units.FormatEther(need))
	}

	p.key, err = s.keys.Get(ctx, faucet.Address, faucet.KeyRef)
	if err != nil {
		return fundingPlan{}, fmt.Errorf("faucet key: %w", err)
	}
	return p, nil
}

func (s *Service) register(ctx context.Context, p fundingPlan) ([]model.Relayer, error) {
	for i, key := range p.keys {
		ref := secret.NewRef(relayerKeyKind, p.batch.ID)
		if err := s.secrets.Store(ctx, ref, hexutil.Encode(crypto.FromECDSA(key))); err != nil {
			return nil, fmt.Errorf("store relayer key %s: %w", p.relayers[i].Address.Hex(), err)
		}
		p.relayers[i].KeyRef = ref
	}

	relayers, err := s.repo.InsertRelayers(ctx, p.relayers)
	if err != nil {
		return nil, fmt.Errorf("register relayers: %w", err)
	}
	return relayers, nil
}

func (s *Service) fund(ctx context.Context, p fundingPlan) (*types.Receipt, error) {
	tx, err := s.send(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("funding transaction sent",
		zap.Int64("batch_id", p.batch.ID),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("total_eth", units.FormatEther(p.total)))

	receipt, err := s.waiter.WaitMined(ctx, tx.Hash(), s.cfg.ConfirmTimeout)
	if err != nil {
		return nil, fmt.Errorf("funding transaction %s: %w", tx.Hash().Hex(), err)
	}
	return receipt, nil
}

func (s *Service) send(ctx context.Context, p fundingPlan) (*types.Transaction, error) {
	unlock := s.locks.Lock(p.faucet.Address)
	defer unlock()

	nonce, err := s.chain.PendingNonceAt(ctx, p.faucet.Address)
	if err != nil {
		return nil, fmt.Errorf("faucet nonce: %w", err)
	}
	tx, err := s.signer.Sign(p.key, chain.TxRequest{
		Nonce:    nonce,
		To:       p.batch.ContractAddress,
		Value:    p.total,
		GasLimit: p.gasLimit,
		GasPrice: p.gasPrice,
		Data:     p.data,
	})
	if err != nil {
		return nil, err
	}
	if err := s.chain.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("send funding transaction: %w", err)
	}
	return tx, nil
}

// setupFailed leaves the pool unusable and the batch setup_failed. It runs on a
// detached context so a cancelled caller cannot strand the batch in provisioning.
func (s *Service) setupFailed(ctx context.Context, logger *zap.Logger, batchID int64, count int, registered bool, cause error) {
	s.metrics.ObserveProvision(outcomeSetupFailed, count)
	logger.Error("provisioning failed", zap.Error(cause))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if registered {
		if _, err := s.repo.SetRelayersStatus(ctx, batchID, model.RelayerRegistered, model.RelayerFailed); err != nil {
			logger.Error("mark relayers failed", zap.Error(err))
		}
	}
	if err := s.repo.SetBatchStatus(ctx, batchID, model.BatchProvisioning, model.BatchSetupFailed, cause.Error()); err != nil {
		logger.Error("mark batch setup failed", zap.Error(err))
	}
}
