package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

// Faucet returns the faucet with the given id.
func (r *Repository) Faucet(ctx context.Context, faucetID int64) (model.Faucet, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("faucet", err, start)
	}()

	const query = `
SELECT id, address, key_ref, funder_address, created_at
FROM faucets
WHERE id = $1`

	var (
		f               model.Faucet
		address, funder []byte
	)
	if err = r.db.QueryRow(ctx, query, faucetID).Scan(&f.ID, &address, &f.KeyRef, &funder, &f.CreatedAt); err != nil {
		err = notFound(err)
		return model.Faucet{}, fmt.Errorf("select faucet %d: %w", faucetID, err)
	}
	if f.Address, err = toAddress(address); err != nil {
		return model.Faucet{}, fmt.Errorf("faucet address: %w", err)
	}
	if f.FunderAddress, err = toNullableAddress(funder); err != nil {
		return model.Faucet{}, fmt.Errorf("faucet funder: %w", err)
	}
	return f, nil
}
