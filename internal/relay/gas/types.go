package gas

import (
	"context"
	"math/big"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	NetworkPricer interface {
		SuggestGasPrice(ctx context.Context) (*big.Int, error)
	}
	Metrics interface {
		ObserveQuote(class string, err error)
	}
)
