package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/keycache"
	"github.com/goodnatureofminers/batchrelay-backend/internal/metrics"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/chain"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/gas"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/service/drainer"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/units"
	"github.com/goodnatureofminers/batchrelay-backend/internal/secret"
)

// BatchArgs selects the batch a command acts on.
type BatchArgs struct {
	BatchID int64 `long:"batch-id" description:"batch id" required:"true"`
}

type pauseCommand struct {
	BatchArgs
	app *app
}

func (c *pauseCommand) Execute([]string) error {
	return c.app.transition(c.BatchID, model.BatchProcessing, model.BatchPaused, "")
}

type resumeCommand struct {
	BatchArgs
	app *app
}

func (c *resumeCommand) Execute([]string) error {
	return c.app.transition(c.BatchID, model.BatchPaused, model.BatchProcessing, "")
}

type abandonCommand struct {
	BatchArgs
	Reason string `long:"reason" description:"why the batch is abandoned" required:"true"`
	app    *app
}

func (c *abandonCommand) Execute([]string) error {
	repo, err := c.app.repository()
	if err != nil {
		return err
	}
	defer repo.Close()

	batch, err := repo.Batch(c.app.ctx, c.BatchID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	return c.app.transition(c.BatchID, batch.Status, model.BatchAbandoned, c.Reason)
}

func (a *app) transition(batchID int64, from, to model.BatchStatus, reason string) error {
	repo, err := a.repository()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.SetBatchStatus(a.ctx, batchID, from, to, reason); err != nil {
		return fmt.Errorf("move batch %d from %s to %s: %w", batchID, from, to, err)
	}
	a.logger.Info("batch status changed", zap.Int64("batch_id", batchID), zap.String("from", string(from)), zap.String("to", string(to)))
	return nil
}

type drainCommand struct {
	BatchArgs
	RPCURL         string        `long:"rpc-url" env:"RELAY_RPC_URL" description:"EVM node URL" default:"http://127.0.0.1:8545"`
	RPCRate        int           `long:"rpc-rate" env:"RELAY_RPC_RATE" description:"max node RPC calls per second" default:"20"`
	GasCeiling     string        `long:"gas-ceiling-gwei" env:"RELAY_GAS_CEILING_GWEI" description:"highest gas price ever attached, 0 disables the cap" default:"300"`
	BoostSweep     string        `long:"boost-sweep" env:"RELAY_BOOST_SWEEP" description:"gas price multiplier for sweeps" default:"1.0"`
	DustThreshold  string        `long:"dust-ether" env:"RELAY_DUST_ETHER" description:"balance at or below which a relayer is not swept" default:"0.0002"`
	ToFunder       bool          `long:"to-funder" env:"RELAY_DRAIN_TO_FUNDER" description:"sweep to the batch funder instead of the faucet"`
	ConfirmTimeout time.Duration `long:"confirm-timeout" env:"RELAY_CONFIRM_TIMEOUT" description:"how long a sweep may wait for its receipt" default:"2m"`
	app            *app
}

func (c *drainCommand) Execute([]string) error {
	ctx := c.app.ctx

	dust, err := units.ParseEther(c.DustThreshold)
	if err != nil {
		return fmt.Errorf("parse dust threshold: %w", err)
	}
	ceiling, err := units.ParseGwei(c.GasCeiling)
	if err != nil {
		return fmt.Errorf("parse gas ceiling: %w", err)
	}
	boost, err := units.ParseBips(c.BoostSweep)
	if err != nil {
		return fmt.Errorf("parse sweep boost: %w", err)
	}

	repo, err := c.app.repository()
	if err != nil {
		return err
	}
	defer repo.Close()

	backend, err := ethclient.DialContext(ctx, c.RPCURL)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}
	defer backend.Close()
	client, err := chain.NewObservedClient(backend, ratelimit.New(c.RPCRate), metrics.NewRPCClient("batchctl"))
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
	pricer, err := gas.NewPolicy(gas.Config{
		Ceiling: ceiling,
		Boosts:  map[model.TxClass]int64{model.ClassSweep: boost},
	}, client, metrics.NewGasPolicy())
	if err != nil {
		return fmt.Errorf("init gas policy: %w", err)
	}

	secrets, err := c.app.secrets()
	if err != nil {
		return fmt.Errorf("init secret manager client: %w", err)
	}
	keys, err := keycache.New(keycache.Config{TTL: 10 * time.Minute}, secrets, secrets, metrics.NewKeyCache(), c.app.logger.Named("keycache"))
	if err != nil {
		return fmt.Errorf("init key cache: %w", err)
	}
	defer keys.Purge()

	svc, err := drainer.New(repo, client, pricer, keys, chain.NewWaiter(client, nil, 0), signer,
		metrics.NewDrainer(), c.app.logger, drainer.Config{
			DustThreshold:  dust,
			ToFunder:       c.ToFunder,
			ConfirmTimeout: c.ConfirmTimeout,
		})
	if err != nil {
		return fmt.Errorf("init drainer: %w", err)
	}

	report, err := svc.Drain(ctx, c.BatchID)
	if err != nil {
		return fmt.Errorf("drain batch %d: %w", c.BatchID, err)
	}
	c.app.logger.Info("batch drained",
		zap.Int64("batch_id", c.BatchID),
		zap.Int("swept", report.Swept),
		zap.Int("dust", report.Dust),
		zap.Int("failed", report.Failed),
		zap.String("recovered_ether", units.FormatEther(report.Recovered)))
	if report.Failed > 0 {
		return fmt.Errorf("%d relayers were not swept, run drain again", report.Failed)
	}
	return nil
}

type auditNoncesCommand struct {
	BatchArgs
	app *app
}

func (c *auditNoncesCommand) Execute([]string) error {
	repo, err := c.app.auditLog()
	if err != nil {
		return err
	}
	defer func() {
		_ = repo.Close()
	}()

	collisions, err := repo.ConfirmedNonceCollisions(c.app.ctx, c.BatchID)
	if err != nil {
		return fmt.Errorf("query nonce collisions: %w", err)
	}
	for _, col := range collisions {
		c.app.logger.Error("nonce confirmed more than once",
			zap.Int64("batch_id", c.BatchID),
			zap.String("relayer", col.Relayer.Hex()),
			zap.Uint64("nonce", col.Nonce),
			zap.Uint64("count", col.Count))
	}
	if len(collisions) > 0 {
		return fmt.Errorf("batch %d has %d colliding nonces", c.BatchID, len(collisions))
	}
	c.app.logger.Info("no nonce collisions", zap.Int64("batch_id", c.BatchID))
	return nil
}

type unsealCommand struct {
	Share string `long:"share" env:"RELAY_UNSEAL_SHARE" description:"unseal key share" required:"true"`
	app   *app
}

func (c *unsealCommand) Execute([]string) error {
	secrets, err := c.app.secrets()
	if err != nil {
		return err
	}
	status, err := secrets.Unseal(c.app.ctx, c.Share)
	if err != nil {
		return fmt.Errorf("submit unseal share: %w", err)
	}
	c.app.logSeal(status)
	return nil
}

type sealStatusCommand struct {
	app *app
}

func (c *sealStatusCommand) Execute([]string) error {
	secrets, err := c.app.secrets()
	if err != nil {
		return err
	}
	status, err := secrets.SealStatus(c.app.ctx)
	if err != nil {
		return fmt.Errorf("read seal status: %w", err)
	}
	c.app.logSeal(status)
	if status.Sealed {
		return errors.New("secret manager is sealed")
	}
	return nil
}

func (a *app) logSeal(s secret.SealStatus) {
	a.logger.Info("secret manager seal status",
		zap.Bool("sealed", s.Sealed),
		zap.Int("progress", s.Progress),
		zap.Int("threshold", s.Threshold),
		zap.Int("shares", s.Shares))
}
