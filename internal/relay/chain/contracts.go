package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const relayABI = `[
	{"type":"function","name":"fundRelayers","stateMutability":"payable",
	 "inputs":[{"name":"relayers","type":"address[]"},{"name":"amountEach","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"commitRoot","stateMutability":"nonpayable",
	 "inputs":[{"name":"batchId","type":"uint256"},{"name":"root","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"settle","stateMutability":"nonpayable",
	 "inputs":[{"name":"batchId","type":"uint256"},{"name":"txId","type":"uint256"},{"name":"funder","type":"address"},
	           {"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"proof","type":"bytes32[]"}],"outputs":[]},
	{"type":"function","name":"isLeafProcessed","stateMutability":"view",
	 "inputs":[{"name":"leaf","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"batchRoot","stateMutability":"view",
	 "inputs":[{"name":"batchId","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

// Contracts packs and unpacks calls to the funding and settlement contracts.
type Contracts struct {
	abi abi.ABI
}

// NewContracts parses the contract ABI.
func NewContracts() (*Contracts, error) {
	parsed, err := abi.JSON(strings.NewReader(relayABI))
	if err != nil {
		return nil, fmt.Errorf("parse relay abi: %w", err)
	}
	return &Contracts{abi: parsed}, nil
}

// FundRelayers packs fundRelayers(address[],uint256). The call value must be
// len(relayers) * amountEach.
func (c *Contracts) FundRelayers(relayers []common.Address, amountEach *big.Int) ([]byte, error) {
	return c.pack("fundRelayers", relayers, amountEach)
}

// CommitRoot packs commitRoot(uint256,bytes32).
func (c *Contracts) CommitRoot(batchID *big.Int, root common.Hash) ([]byte, error) {
	return c.pack("commitRoot", batchID, [32]byte(root))
}

// Settlement is the argument set of one settle call.
type Settlement struct {
	BatchID   *big.Int
	TxID      *big.Int
	Funder    common.Address
	Recipient common.Address
	Amount    *big.Int
	Proof     []common.Hash
}

// Settle packs settle(uint256,uint256,address,address,uint256,bytes32[]).
func (c *Contracts) Settle(s Settlement) ([]byte, error) {
	proof := make([][32]byte, len(s.Proof))
	for i, h := range s.Proof {
		proof[i] = h
	}
	return c.pack("settle", s.BatchID, s.TxID, s.Funder, s.Recipient, s.Amount, proof)
}

// IsLeafProcessed packs isLeafProcessed(bytes32).
func (c *Contracts) IsLeafProcessed(leaf common.Hash) ([]byte, error) {
	return c.pack("isLeafProcessed", [32]byte(leaf))
}

// UnpackIsLeafProcessed decodes the isLeafProcessed result.
func (c *Contracts) UnpackIsLeafProcessed(data []byte) (bool, error) {
	out, err := c.abi.Unpack("isLeafProcessed", data)
	if err != nil {
		return false, fmt.Errorf("unpack isLeafProcessed: %w", err)
	}
	processed, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isLeafProcessed output %T", out[0])
	}
	return processed, nil
}

// BatchRoot packs batchRoot(uint256).
func (c *Contracts) BatchRoot(batchID *big.Int) ([]byte, error) {
	return c.pack("batchRoot", batchID)
}

// UnpackBatchRoot decodes the batchRoot result.
func (c *Contracts) UnpackBatchRoot(data []byte) (common.Hash, error) {
	out, err := c.abi.Unpack("batchRoot", data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("unpack batchRoot: %w", err)
	}
	root, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("unexpected batchRoot output %T", out[0])
	}
	return root, nil
}

func (c *Contracts) pack(method string, args ...any) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}
