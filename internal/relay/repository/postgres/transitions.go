package postgres

// Status guards of the statements that move batch_transactions rows. Each
// must only admit sources that model.TxStatus allows for the target status.
const (
	guardPending  = `status = 'pending'`
	guardSending  = `status = 'sending'`
	guardInFlight = `status IN ('sending', 'waiting_confirmation')`
)
