package dispatcher

import "time"

const (
	defaultConfirmTimeout  = 2 * time.Minute
	defaultGasHeadroomBips = 12_000

	defaultAuditFlushSize     = 256
	defaultAuditFlushInterval = 2 * time.Second
	defaultAuditRPS           = 20

	defaultReconcileInterval = 30 * time.Second
	defaultStaleSendingAfter = 5 * time.Minute
	defaultStaleBatchLimit   = 500
)
