package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/gas"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/units"
)

type config struct {
	PostgresDSN   string `long:"postgres-dsn" env:"RELAY_POSTGRES_DSN" description:"Postgres DSN" required:"true"`
	ClickhouseDSN string `long:"clickhouse-dsn" env:"RELAY_CLICKHOUSE_DSN" description:"ClickHouse DSN for the dispatch audit log, empty disables it"`
	MetricsAddr   string `long:"metrics-addr" env:"RELAY_METRICS_ADDR" description:"address for metrics server" default:":2112"`

	RPCURL      string        `long:"rpc-url" env:"RELAY_RPC_URL" description:"EVM node URL, ws(s) enables new-head subscriptions" default:"ws://127.0.0.1:8546"`
	RPCRate     int           `long:"rpc-rate" env:"RELAY_RPC_RATE" description:"max node RPC calls per second" default:"50"`
	ChainName   string        `long:"chain" env:"RELAY_CHAIN" description:"chain label for metrics" default:"ethereum"`
	ReceiptPoll time.Duration `long:"receipt-poll" env:"RELAY_RECEIPT_POLL" description:"receipt poll interval" default:"2s"`

	VaultAddr       string        `long:"vault-addr" env:"RELAY_VAULT_ADDR" description:"secret manager address" default:"http://127.0.0.1:8200"`
	VaultToken      string        `long:"vault-token" env:"RELAY_VAULT_TOKEN" description:"secret manager token"`
	VaultMount      string        `long:"vault-mount" env:"RELAY_VAULT_MOUNT" description:"KV v2 mount holding account keys" default:"relay"`
	VaultTimeout    time.Duration `long:"vault-timeout" env:"RELAY_VAULT_TIMEOUT" description:"secret manager request timeout" default:"10s"`
	VaultMaxRetries int           `long:"vault-max-retries" env:"RELAY_VAULT_MAX_RETRIES" description:"secret manager client retries" default:"2"`
	KeyCacheSize    int           `long:"key-cache-size" env:"RELAY_KEY_CACHE_SIZE" description:"max cached private keys" default:"1024"`
	KeyCacheTTL     time.Duration `long:"key-cache-ttl" env:"RELAY_KEY_CACHE_TTL" description:"lifetime of a cached private key" default:"10m"`

	GasCeiling    string `long:"gas-ceiling-gwei" env:"RELAY_GAS_CEILING_GWEI" description:"highest gas price ever attached, 0 disables the cap" default:"300"`
	GasBump       string `long:"gas-bump" env:"RELAY_GAS_BUMP" description:"multiplier applied to the previous price of a replacement" default:"1.125"`
	GasHeadroom   string `long:"gas-headroom" env:"RELAY_GAS_HEADROOM" description:"multiplier applied to gas estimates" default:"1.2"`
	BoostTransfer string `long:"boost-transfer" env:"RELAY_BOOST_TRANSFER" description:"gas price multiplier for transfers" default:"1.0"`
	BoostFunding  string `long:"boost-funding" env:"RELAY_BOOST_FUNDING" description:"gas price multiplier for relayer funding" default:"1.1"`
	BoostCommit   string `long:"boost-commit" env:"RELAY_BOOST_COMMIT" description:"gas price multiplier for root commits" default:"1.1"`
	BoostSweep    string `long:"boost-sweep" env:"RELAY_BOOST_SWEEP" description:"gas price multiplier for sweeps" default:"1.0"`
	BoostCancel   string `long:"boost-cancel" env:"RELAY_BOOST_CANCEL" description:"gas price multiplier for nonce cancellations" default:"1.3"`

	RelayersPerBatch  int    `long:"relayers-per-batch" env:"RELAY_RELAYERS_PER_BATCH" description:"relayer pool size per batch" default:"8"`
	MaxPoolSize       int    `long:"max-pool-size" env:"RELAY_MAX_POOL_SIZE" description:"upper bound on a relayer pool" default:"64"`
	FundingPerRelayer string `long:"funding-ether" env:"RELAY_FUNDING_ETHER" description:"ether sent to each relayer" default:"0.05"`
	DustThreshold     string `long:"dust-ether" env:"RELAY_DUST_ETHER" description:"balance at or below which a relayer is not swept" default:"0.0002"`
	DrainToFunder     bool   `long:"drain-to-funder" env:"RELAY_DRAIN_TO_FUNDER" description:"sweep relayers to the batch funder instead of the faucet"`
	DrainWorkers      int    `long:"drain-workers" env:"RELAY_DRAIN_WORKERS" description:"parallel sweeps" default:"4"`
	TreeCacheSize     int    `long:"tree-cache-size" env:"RELAY_TREE_CACHE_SIZE" description:"merkle trees kept in memory" default:"16"`

	MaxRetries        int           `long:"max-retries" env:"RELAY_MAX_RETRIES" description:"retry budget of a transaction" default:"5"`
	TransientAttempts uint          `long:"transient-attempts" env:"RELAY_TRANSIENT_ATTEMPTS" description:"in-place attempts of a transient call" default:"3"`
	TransientDelay    time.Duration `long:"transient-delay" env:"RELAY_TRANSIENT_DELAY" description:"base back-off between in-place attempts" default:"200ms"`
	MaxTransientDelay time.Duration `long:"max-transient-delay" env:"RELAY_MAX_TRANSIENT_DELAY" description:"back-off cap" default:"5s"`

	ConfirmTimeout    time.Duration `long:"confirm-timeout" env:"RELAY_CONFIRM_TIMEOUT" description:"how long a broadcast may wait for its receipt" default:"2m"`
	PollInterval      time.Duration `long:"poll-interval" env:"RELAY_POLL_INTERVAL" description:"runnable batch poll interval" default:"10s"`
	RoundInterval     time.Duration `long:"round-interval" env:"RELAY_ROUND_INTERVAL" description:"pause between dispatch rounds" default:"3s"`
	MaxBatches        int           `long:"max-batches" env:"RELAY_MAX_BATCHES" description:"batches worked at once" default:"4"`
	ReconcileInterval time.Duration `long:"reconcile-interval" env:"RELAY_RECONCILE_INTERVAL" description:"stale row recovery interval" default:"30s"`
	StaleSendingAfter time.Duration `long:"stale-sending-after" env:"RELAY_STALE_SENDING_AFTER" description:"age at which a sending row is abandoned" default:"5m"`
	AuditFlushSize    int           `long:"audit-flush-size" env:"RELAY_AUDIT_FLUSH_SIZE" description:"audit rows per insert" default:"256"`
	AuditFlushEvery   time.Duration `long:"audit-flush-interval" env:"RELAY_AUDIT_FLUSH_INTERVAL" description:"max delay before audit rows are inserted" default:"2s"`
}

// amounts holds the decimal flags converted to on-chain integers.
type amounts struct {
	funding  *big.Int
	dust     *big.Int
	headroom int64
	gas      gas.Config
}

func (c config) amounts() (amounts, error) {
	var (
		a   amounts
		err error
	)
	if a.funding, err = units.ParseEther(c.FundingPerRelayer); err != nil {
		return a, fmt.Errorf("parse funding: %w", err)
	}
	if a.dust, err = units.ParseEther(c.DustThreshold); err != nil {
		return a, fmt.Errorf("parse dust threshold: %w", err)
	}
	if a.headroom, err = units.ParseBips(c.GasHeadroom); err != nil {
		return a, fmt.Errorf("parse gas headroom: %w", err)
	}
	if a.headroom < units.BipsOne {
		return a, fmt.Errorf("gas headroom %s is below 1.0", c.GasHeadroom)
	}
	a.gas, err = gasConfig(c.GasCeiling, c.GasBump, map[model.TxClass]string{
		model.ClassTransfer: c.BoostTransfer,
		model.ClassFunding:  c.BoostFunding,
		model.ClassCommit:   c.BoostCommit,
		model.ClassSweep:    c.BoostSweep,
		model.ClassCancel:   c.BoostCancel,
	})
	return a, err
}

func gasConfig(ceiling, bump string, boosts map[model.TxClass]string) (gas.Config, error) {
	var (
		cfg gas.Config
		err error
	)
	if cfg.Ceiling, err = units.ParseGwei(ceiling); err != nil {
		return cfg, fmt.Errorf("parse gas ceiling: %w", err)
	}
	if cfg.BumpBips, err = units.ParseBips(bump); err != nil {
		return cfg, fmt.Errorf("parse gas bump: %w", err)
	}
	cfg.Boosts = make(map[model.TxClass]int64, len(boosts))
	for class, raw := range boosts {
		bips, err := units.ParseBips(raw)
		if err != nil {
			return cfg, fmt.Errorf("parse %s boost: %w", class, err)
		}
		cfg.Boosts[class] = bips
	}
	return cfg, cfg.Validate()
}
