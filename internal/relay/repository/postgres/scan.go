package postgres

import (
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
	"github.com/goodnatureofminers/batchrelay-backend/pkg/safe"
	"github.com/jackc/pgx/v5"
)

const batchColumns = `
	b.id,
	b.chain_id::text,
	b.contract_address,
	b.funder_address,
	b.faucet_id,
	b.status,
	b.total_transactions,
	b.sent_transactions,
	b.failed_transactions,
	b.merkle_root,
	b.merkle_commit_tx,
	b.gas_used,
	b.gas_spent_wei::text,
	b.last_error,
	b.created_at,
	b.updated_at,
	b.completed_at`

func scanBatch(row Row) (model.Batch, error) {
	var (
		b                         model.Batch
		chainID, gasSpent, status string
		contract, funder          []byte
		root, commitTx            []byte
		gasUsed                   int64
	)
	if err := row.Scan(
		&b.ID,
		&chainID,
		&contract,
		&funder,
		&b.FaucetID,
		&status,
		&b.TotalTransactions,
		&b.SentTransactions,
		&b.FailedTransactions,
		&root,
		&commitTx,
		&gasUsed,
		&gasSpent,
		&b.LastError,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CompletedAt,
	); err != nil {
		return model.Batch{}, err
	}

	var err error
	b.Status = model.BatchStatus(status)
	if b.ChainID, err = parseNumeric(chainID); err != nil {
		return model.Batch{}, fmt.Errorf("chain id: %w", err)
	}
	if b.GasSpentWei, err = parseNumeric(gasSpent); err != nil {
		return model.Batch{}, fmt.Errorf("gas spent: %w", err)
	}
	if b.ContractAddress, err = toAddress(contract); err != nil {
		return model.Batch{}, fmt.Errorf("contract address: %w", err)
	}
	if b.FunderAddress, err = toAddress(funder); err != nil {
		return model.Batch{}, fmt.Errorf("funder address: %w", err)
	}
	if b.MerkleRoot, err = toNullableHash(root); err != nil {
		return model.Batch{}, fmt.Errorf("merkle root: %w", err)
	}
	if b.MerkleCommitTx, err = toNullableHash(commitTx); err != nil {
		return model.Batch{}, fmt.Errorf("merkle commit tx: %w", err)
	}
	if gasUsed < 0 {
		return model.Batch{}, fmt.Errorf("negative gas used %d", gasUsed)
	}
	b.GasUsed = uint64(gasUsed)
	return b, nil
}

const transactionColumns = `
	t.id,
	t.batch_id,
	t.recipient,
	t.amount::text,
	t.status,
	t.relayer_address,
	t.nonce,
	t.tx_hash,
	t.gas_price::text,
	t.retry_count,
	t.reassign_count,
	t.failure_reason,
	t.created_at,
	t.updated_at,
	t.sent_at,
	t.confirmed_at`

func scanTransaction(row Row) (model.BatchTransaction, error) {
	var (
		tx                  model.BatchTransaction
		recipient, relayer  []byte
		hash                []byte
		amount, status      string
		gasPrice            *string
		nonce               *int64
		sentAt, confirmedAt *time.Time
	)
	if err := row.Scan(
		&tx.ID,
		&tx.BatchID,
		&recipient,
		&amount,
		&status,
		&relayer,
		&nonce,
		&hash,
		&gasPrice,
		&tx.RetryCount,
		&tx.ReassignCount,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&sentAt,
		&confirmedAt,
	); err != nil {
		return model.BatchTransaction{}, err
	}

	var err error
	tx.Status = model.TxStatus(status)
	tx.SentAt = sentAt
	tx.ConfirmedAt = confirmedAt
	if tx.Recipient, err = toAddress(recipient); err != nil {
		return model.BatchTransaction{}, fmt.Errorf("recipient: %w", err)
	}
	if tx.Amount, err = parseNumeric(amount); err != nil {
		return model.BatchTransaction{}, fmt.Errorf("amount: %w", err)
	}
	if tx.RelayerAddress, err = toNullableAddress(relayer); err != nil {
		return model.BatchTransaction{}, fmt.Errorf("relayer address: %w", err)
	}
	if tx.TxHash, err = toNullableHash(hash); err != nil {
		return model.BatchTransaction{}, fmt.Errorf("tx hash: %w", err)
	}
	if tx.GasPrice, err = parseNullableNumeric(gasPrice); err != nil {
		return model.BatchTransaction{}, fmt.Errorf("gas price: %w", err)
	}
	if nonce != nil {
		n, err := safe.Uint64(*nonce)
		if err != nil {
			return model.BatchTransaction{}, fmt.Errorf("nonce: %w", err)
		}
		tx.Nonce = &n
	}
	return tx, nil
}

const relayerColumns = `
	r.id,
	r.address,
	r.batch_id,
	r.key_ref,
	r.last_balance::text,
	r.status,
	r.drain_tx_hash,
	r.last_activity_at,
	r.created_at`

func scanRelayer(row Row) (model.Relayer, error) {
	var (
		rl              model.Relayer
		address, drain  []byte
		balance, status string
	)
	if err := row.Scan(
		&rl.ID,
		&address,
		&rl.BatchID,
		&rl.KeyRef,
		&balance,
		&status,
		&drain,
		&rl.LastActivityAt,
		&rl.CreatedAt,
	); err != nil {
		return model.Relayer{}, err
	}

	var err error
	rl.Status = model.RelayerStatus(status)
	if rl.Address, err = toAddress(address); err != nil {
		return model.Relayer{}, fmt.Errorf("address: %w", err)
	}
	if rl.LastBalance, err = parseNumeric(balance); err != nil {
		return model.Relayer{}, fmt.Errorf("last balance: %w", err)
	}
	if rl.DrainTxHash, err = toNullableHash(drain); err != nil {
		return model.Relayer{}, fmt.Errorf("drain tx hash: %w", err)
	}
	return rl, nil
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(Row) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
