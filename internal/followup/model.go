package followup

import "time"

// Kind says what went wrong and still needs a human.
type Kind string

const (
	// KindTransferFailed: payment approved, shared-ticket accept failed.
	KindTransferFailed Kind = "transfer_failed"
	// KindCancelFailed: the compensating order cancellation failed and the
	// order may still hold reserved stock.
	KindCancelFailed Kind = "cancel_failed"
)

// Record is one open problem left behind by a checkout.
type Record struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	SessionID    string     `json:"session_id,omitempty"`
	PaymentID    string     `json:"payment_id,omitempty"`
	OrderID      string     `json:"order_id,omitempty"`
	ShareTokenFP string     `json:"share_token_fp,omitempty"`
	Detail       string     `json:"detail,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}
