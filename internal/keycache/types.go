package keycache

import "context"

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	SecretFetcher interface {
		Fetch(ctx context.Context, ref string) (string, error)
	}
	SealChecker interface {
		Sealed(ctx context.Context) (bool, error)
	}
	Metrics interface {
		ObserveLookup(result string)
		ObserveEvictions(count int)
	}
)
