package receipts

import "time"

// VerifiedReceipt is the normalized outcome of a store-side verification.
type VerifiedReceipt struct {
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	Environment           string
	ExpiresAt             *time.Time
	TrialEndsAt           *time.Time
	AutoRenew             bool
}
