package redirect

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/healthythako/payment-redirect/pkg/types"
)

// ParseRedirectParams extracts a RedirectEvent from the gateway's redirect
// query parameters. It accepts invoice_id or its order_id alias (first
// non-empty wins) and fails with ErrMissingInvoiceID when both are absent.
// Unknown parameters are ignored for forward compatibility with gateway
// changes. No I/O; deterministic given the same values and receivedAt.
func ParseRedirectParams(q url.Values, receivedAt time.Time) (*RedirectEvent, error) {
	invoiceID := strings.TrimSpace(q.Get("invoice_id"))
	if invoiceID == "" {
		invoiceID = strings.TrimSpace(q.Get("order_id"))
	}
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: params=%v", ErrMissingInvoiceID, paramKeys(q))
	}

	event := &RedirectEvent{
		InvoiceID:     invoiceID,
		RawStatus:     normalizeStatus(q.Get("status")),
		PaymentType:   types.ParsePaymentType(q.Get("type")),
		TransactionID: strings.TrimSpace(q.Get("transaction_id")),
		ReceivedAt:    receivedAt,
	}

	if raw := strings.TrimSpace(q.Get("amount")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			event.Amount = &v
		}
	}

	return event, nil
}

// normalizeStatus lowercases the gateway status token and folds "cancel"
// into "cancelled". Tokens outside the known set pass through unchanged;
// they are advisory anyway.
func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "cancel" {
		return StatusCancelled
	}
	return s
}

func paramKeys(q url.Values) []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	return keys
}
