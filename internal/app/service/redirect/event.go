package redirect

import (
	"time"

	"github.com/healthythako/payment-redirect/pkg/types"
)

// Redirect status tokens after normalization. RawStatus is advisory/UX-only:
// URL parameters are attacker- and cache-controllable, so it never makes a
// payment successful. The single deliberate exception is the cancellation
// short-circuit in Classify.
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RedirectEvent is one gateway callback, parsed and normalized. Immutable
// after construction; it is consumed by the controller and discarded (the
// audit trail persists a derived record, not the event itself).
type RedirectEvent struct {
	InvoiceID     string            `json:"invoice_id"`
	RawStatus     string            `json:"raw_status,omitempty"`
	PaymentType   types.PaymentType `json:"payment_type"`
	Amount        *float64          `json:"amount,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	ReceivedAt    time.Time         `json:"received_at"`
}

// Cancelled reports whether the gateway's own redirect declared the checkout
// cancelled. A cancellation is definitive without a verification round trip.
func (e *RedirectEvent) Cancelled() bool {
	return e != nil && e.RawStatus == StatusCancelled
}
