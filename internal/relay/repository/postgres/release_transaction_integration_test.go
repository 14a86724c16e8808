package postgres

import (
	"time"

	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

func (s *RepositorySuite) TestReleaseTransaction() {
	batchID := s.seedBatch(model.BatchProcessing, 1)
	relayer := relayerAddress(1)

	tx, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayer)
	s.Require().NoError(err)

	s.ErrorIs(s.repo.ReleaseTransaction(s.testCtx, tx.ID, relayerAddress(2), true, "wrong owner"), ErrConflict)

	s.Require().NoError(s.repo.ReleaseTransaction(s.testCtx, tx.ID, relayer, false, "gas ceiling"))
	tx, err = s.repo.ClaimNextTransaction(s.testCtx, batchID, relayer)
	s.Require().NoError(err)
	s.Equal(0, tx.RetryCount)
	s.Equal("gas ceiling", tx.FailureReason)

	s.Require().NoError(s.repo.ReleaseTransaction(s.testCtx, tx.ID, relayer, true, "timeout"))
	tx, err = s.repo.ClaimNextTransaction(s.testCtx, batchID, relayer)
	s.Require().NoError(err)
	s.Equal(1, tx.RetryCount)
	s.Nil(tx.Nonce)
}

func (s *RepositorySuite) TestRecordRetryAndReassign() {
	batchID := s.seedBatch(model.BatchProcessing, 1)
	relayer := relayerAddress(1)

	tx, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayer)
	s.Require().NoError(err)
	s.submit(tx, 3)

	count, err := s.repo.RecordRetry(s.testCtx, tx.ID, relayer, "underpriced")
	s.Require().NoError(err)
	s.Equal(1, count)

	_, err = s.repo.RecordRetry(s.testCtx, tx.ID, relayerAddress(9), "underpriced")
	s.ErrorIs(err, ErrConflict)

	s.Require().NoError(s.repo.ReassignTransaction(s.testCtx, tx.ID, "confirmation timeout"))
	s.ErrorIs(s.repo.ReassignTransaction(s.testCtx, tx.ID, "again"), ErrConflict)

	again, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayerAddress(2))
	s.Require().NoError(err)
	s.Equal(tx.ID, again.ID)
	s.Equal(1, again.ReassignCount)
	s.Equal(1, again.RetryCount)
	s.Nil(again.TxHash)
}

func (s *RepositorySuite) TestStaleTransactions() {
	batchID := s.seedBatch(model.BatchProcessing, 2)

	tx, err := s.repo.ClaimNextTransaction(s.testCtx, batchID, relayerAddress(1))
	s.Require().NoError(err)

	stale, err := s.repo.StaleTransactions(s.testCtx, model.TxSending, time.Now().Add(time.Minute), 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal(tx.ID, stale[0].ID)

	fresh, err := s.repo.StaleTransactions(s.testCtx, model.TxSending, time.Now().Add(-time.Hour), 10)
	s.Require().NoError(err)
	s.Empty(fresh)
}
