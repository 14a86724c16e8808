package postgres

import (
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

func (s *RepositorySuite) TestReconcileBatchCounts() {
	batchID := s.seedBatch(model.BatchProcessing, 2)

	rec, err := s.repo.ReconcileBatchCounts(s.testCtx, batchID)
	s.Require().NoError(err)
	s.False(rec.Repaired)

	_, err = s.repo.db.Exec(s.testCtx, `UPDATE batch_transactions SET status = 'completed' WHERE batch_id = $1`, batchID)
	s.Require().NoError(err)

	rec, err = s.repo.ReconcileBatchCounts(s.testCtx, batchID)
	s.Require().NoError(err)
	s.True(rec.Repaired)
	s.Equal(model.BatchCounts{Total: 2}, rec.Stored)
	s.Equal(model.BatchCounts{Total: 2, Completed: 2}, rec.Actual)
	s.Equal(model.BatchCompleted, rec.Status)

	batch, err := s.repo.Batch(s.testCtx, batchID)
	s.Require().NoError(err)
	s.EqualValues(2, batch.SentTransactions)
	s.Equal(model.BatchCompleted, batch.Status)

	_, err = s.repo.ReconcileBatchCounts(s.testCtx, batchID+100)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestRunnableBatches() {
	created := s.seedBatch(model.BatchCreated, 1)
	processing := s.seedBatch(model.BatchProcessing, 1)
	s.seedBatch(model.BatchPaused, 1)
	finished := s.seedBatch(model.BatchCompleted, 0)
	s.seedBatch(model.BatchCompleted, 0)

	s.insertRelayers(finished, 1)
	_, err := s.repo.SetRelayersStatus(s.testCtx, finished, model.RelayerRegistered, model.RelayerActive)
	s.Require().NoError(err)

	batches, err := s.repo.RunnableBatches(s.testCtx, 10)
	s.Require().NoError(err)

	var ids []int64
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	s.Equal([]int64{created, processing, finished}, ids)
}
