// Package main is the operator tool for batches and the secret manager.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/batchrelay-backend/internal/metrics"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/repository/clickhouse"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/repository/postgres"
	"github.com/goodnatureofminers/batchrelay-backend/internal/secret"
)

type options struct {
	PostgresDSN     string        `long:"postgres-dsn" env:"RELAY_POSTGRES_DSN" description:"Postgres DSN"`
	ClickhouseDSN   string        `long:"clickhouse-dsn" env:"RELAY_CLICKHOUSE_DSN" description:"ClickHouse DSN of the dispatch audit log"`
	VaultAddr       string        `long:"vault-addr" env:"RELAY_VAULT_ADDR" description:"secret manager address" default:"http://127.0.0.1:8200"`
	VaultToken      string        `long:"vault-token" env:"RELAY_VAULT_TOKEN" description:"secret manager token"`
	VaultMount      string        `long:"vault-mount" env:"RELAY_VAULT_MOUNT" description:"KV v2 mount holding account keys" default:"relay"`
	VaultTimeout    time.Duration `long:"vault-timeout" env:"RELAY_VAULT_TIMEOUT" description:"secret manager request timeout" default:"10s"`
	VaultMaxRetries int           `long:"vault-max-retries" env:"RELAY_VAULT_MAX_RETRIES" description:"secret manager client retries" default:"2"`
}

// app carries what every sub-command needs. go-flags calls Execute during
// parsing, so it is filled in before the parser runs.
type app struct {
	ctx    context.Context
	logger *zap.Logger
	opts   options
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	a := &app{ctx: ctx, logger: logger}
	parser := flags.NewParser(&a.opts, flags.Default)
	register(parser, a)

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("batchctl failed", zap.Error(err))
	}
}

func register(parser *flags.Parser, a *app) {
	commands := []struct {
		name, short string
		cmd         flags.Commander
	}{
		{"pause", "Stop new claims on a processing batch", &pauseCommand{app: a}},
		{"resume", "Let a paused batch claim again", &resumeCommand{app: a}},
		{"abandon", "End an unfinished batch", &abandonCommand{app: a}},
		{"drain", "Sweep relayer balances of a finished batch", &drainCommand{app: a}},
		{"audit-nonces", "List relayer nonces that confirmed more than one transaction", &auditNoncesCommand{app: a}},
		{"unseal", "Submit one unseal key share", &unsealCommand{app: a}},
		{"seal-status", "Show secret manager seal progress", &sealStatusCommand{app: a}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.short, c.cmd); err != nil {
			a.logger.Fatal("failed to register command", zap.String("command", c.name), zap.Error(err))
		}
	}
}

func (a *app) repository() (*postgres.Repository, error) {
	if a.opts.PostgresDSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	return postgres.NewRepository(a.ctx, a.opts.PostgresDSN, metrics.NewPostgresRepository())
}

func (a *app) auditLog() (*clickhouse.Repository, error) {
	if a.opts.ClickhouseDSN == "" {
		return nil, errors.New("clickhouse dsn is required")
	}
	return clickhouse.NewRepository(a.opts.ClickhouseDSN, metrics.NewClickhouseRepository())
}

func (a *app) secrets() (*secret.Client, error) {
	return secret.NewClient(secret.Config{
		Address:    a.opts.VaultAddr,
		Token:      a.opts.VaultToken,
		Mount:      a.opts.VaultMount,
		MaxRetries: a.opts.VaultMaxRetries,
		Timeout:    a.opts.VaultTimeout,
	}, metrics.NewSecretManager())
}
