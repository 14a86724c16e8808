package postgres

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/goodnatureofminers/batchrelay-backend/internal/relay/model"
)

func (s *RepositorySuite) TestMerkleNodesRoundTrip() {
	batchID := s.seedBatch(model.BatchProcessing, 3)
	levels := [][]common.Hash{
		{common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")},
		{common.HexToHash("0x12"), common.HexToHash("0x03")},
		{common.HexToHash("0x123")},
	}

	s.Require().NoError(s.repo.ReplaceMerkleNodes(s.testCtx, batchID, levels))
	s.Require().NoError(s.repo.ReplaceMerkleNodes(s.testCtx, batchID, levels))

	nodes, err := s.repo.MerkleNodes(s.testCtx, batchID)
	s.Require().NoError(err)
	s.Require().Len(nodes, 6)
	s.Equal(0, nodes[0].Level)
	s.Equal(levels[2][0], nodes[5].Hash)

	s.Require().NoError(s.repo.MarkLeavesVerified(s.testCtx, batchID, []int{0, 2}))
	nodes, err = s.repo.MerkleNodes(s.testCtx, batchID)
	s.Require().NoError(err)
	s.True(nodes[0].VerifiedOnChain)
	s.False(nodes[1].VerifiedOnChain)
	s.True(nodes[2].VerifiedOnChain)

	commitTx := common.HexToHash("0xc0")
	s.Require().NoError(s.repo.SetMerkleRoot(s.testCtx, batchID, levels[2][0], nil))
	s.Require().NoError(s.repo.SetMerkleRoot(s.testCtx, batchID, levels[2][0], &commitTx))
	batch, err := s.repo.Batch(s.testCtx, batchID)
	s.Require().NoError(err)
	s.Equal(levels[2][0], *batch.MerkleRoot)
	s.Equal(commitTx, *batch.MerkleCommitTx)

	s.ErrorIs(s.repo.SetMerkleRoot(s.testCtx, batchID+100, levels[2][0], nil), ErrNotFound)
}
