package retrier

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		ObserveDecision(class, action string)
		ObserveTransientRetry(class string)
	}
)
