package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrReverted is returned when a call or mined transaction reverted.
	ErrReverted = errors.New("execution reverted")
	// ErrConfirmationTimeout is returned when no receipt arrived within the wait bound.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// RevertError carries the decoded revert reason, when the node returned one.
type RevertError struct {
	Reason string
	Err    error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %v", ErrReverted, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrReverted, e.Reason)
}

func (e *RevertError) Unwrap() []error {
	return []error{ErrReverted, e.Err}
}

// asRevert turns a node "execution reverted" error into a RevertError.
func asRevert(err error) error {
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
		return err
	}

	revert := &RevertError{Err: err}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(s); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					revert.Reason = reason
				}
			}
		}
	}
	return revert
}
