package redirect

import "errors"

// ErrMissingInvoiceID is the hard parse failure: the redirect carried neither
// invoice_id nor order_id, so there is nothing to verify. Non-retryable.
var ErrMissingInvoiceID = errors.New("redirect carries no invoice_id or order_id")
