package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferGas is the gas used by a plain value transfer.
const TransferGas uint64 = 21_000

// TxRequest describes an unsigned legacy transaction.
type TxRequest struct {
	Nonce    uint64
	To       common.Address
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Data     []byte
}

// Signer signs legacy transactions for one chain.
type Signer struct {
	chainID *big.Int
	signer  types.Signer
}

// NewSigner builds a Signer for chainID.
func NewSigner(chainID *big.Int) (*Signer, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain id is required")
	}
	return &Signer{chainID: new(big.Int).Set(chainID), signer: types.LatestSignerForChainID(chainID)}, nil
}

// ChainID returns the chain the signer signs for.
func (s *Signer) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Sign builds and signs req with key.
func (s *Signer) Sign(key *ecdsa.PrivateKey, req TxRequest) (*types.Transaction, error) {
	if key == nil {
		return nil, errors.New("signing key is nil")
	}
	if req.GasPrice == nil || req.GasPrice.Sign() <= 0 {
		return nil, errors.New("gas price is required")
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	tx, err := types.SignNewTx(key, s.signer, &types.LegacyTx{
		Nonce:    req.Nonce,
		To:       &to,
		Value:    value,
		Gas:      req.GasLimit,
		GasPrice: req.GasPrice,
		Data:     req.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// Sender recovers the sender of a signed transaction.
func (s *Signer) Sender(tx *types.Transaction) (common.Address, error) {
	return types.Sender(s.signer, tx)
}

// Address returns the account of key.
func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
