package postgres

import (
	"errors"
	"sync"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

func (s *RepositorySuite) TestClaimNextTransactionHandsOutEachRowOnce() {
	const (
		rows     = 40
		claimers = 8
	)
	batchID := s.seedBatch(model.BatchProcessing, rows)

	var (
		mu      sync.Mutex
		claimed = map[int64]int{}
		wg      sync.WaitGroup
		errs    = make(chan error, claimers)
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(relayer int) {
			defer wg.Done()
			for {
				tx, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayerAddress(relayer))
				if errors.Is(err, ErrNotFound) {
					return
				}
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				claimed[tx.ID]++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	s.Len(claimed, rows)
	for id, n := range claimed {
		s.Equalf(1, n, "transaction %d claimed %d times", id, n)
	}

	txs, err := s.repo.TransactionsByBatch(s.testCtx, batchID)
	s.Require().NoError(err)
	for _, tx := range txs {
		s.Equal(model.TxSending, tx.Status)
		s.NotNil(tx.RelayerAddress)
	}
}

func (s *RepositorySuite) TestClaimNextTransactionRequiresProcessingBatch() {
	batchID := s.seedBatch(model.BatchPaused, 3)

	_, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayerAddress(1))
	s.ErrorIs(err, ErrNotFound)

	s.Require().NoError(s.repo.SetBatchStatus(s.testCtx, batchID, model.BatchPaused, model.BatchProcessing, ""))

	tx, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayerAddress(1))
	s.Require().NoError(err)
	s.Equal(model.TxSending, tx.Status)
	s.Equal(relayerAddress(1), *tx.RelayerAddress)
}

func (s *RepositorySuite) TestClaimNextTransactionOldestFirst() {
	batchID := s.seedBatch(model.BatchProcessing, 3)

	first, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayerAddress(1))
	s.Require().NoError(err)
	second, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayerAddress(1))
	s.Require().NoError(err)
	s.Less(first.ID, second.ID)
}
