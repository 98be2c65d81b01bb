package model

import "time"

// Transaction is a single parsed financial event. The surrounding ledger owns
// the full record; the core reads and writes only the fields that matter for
// classification and duplicate matching. Amount is in the smallest currency
// unit.
type Transaction struct {
	NotificationTime time.Time       `json:"notification_time"`
	CreatedAt        time.Time       `json:"created_at"`
	ID               string          `json:"id"`
	Scope            string          `json:"scope"`
	BankName         string          `json:"bank_name"`
	Description      string          `json:"description"`
	Merchant         string          `json:"merchant,omitempty"`
	SourceApp        string          `json:"source_app"`
	Type             TransactionType `json:"type"`
	Amount           int64           `json:"amount"`
}
