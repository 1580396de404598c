package redirect

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthythako/payment-redirect/pkg/types"
)

func TestParseRedirectParams_InvoiceAndOrderIDAreAliases(t *testing.T) {
	now := time.Now()

	a, err := ParseRedirectParams(url.Values{"invoice_id": {"ht_inv_1"}}, now)
	require.NoError(t, err)
	b, err := ParseRedirectParams(url.Values{"order_id": {"ht_inv_1"}}, now)
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Equal(t, "ht_inv_1", a.InvoiceID)
}

func TestParseRedirectParams_FirstNonEmptyWins(t *testing.T) {
	e, err := ParseRedirectParams(url.Values{"invoice_id": {"inv_a"}, "order_id": {"inv_b"}}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "inv_a", e.InvoiceID)

	e, err = ParseRedirectParams(url.Values{"invoice_id": {"  "}, "order_id": {"inv_b"}}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "inv_b", e.InvoiceID)
}

func TestParseRedirectParams_MissingIDs(t *testing.T) {
	_, err := ParseRedirectParams(url.Values{"status": {"success"}, "amount": {"100"}}, time.Now())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingInvoiceID))
}

func TestParseRedirectParams_StatusNormalization(t *testing.T) {
	cases := map[string]string{
		"success":   StatusSuccess,
		"SUCCESS":   StatusSuccess,
		"cancel":    StatusCancelled,
		"Cancel":    StatusCancelled,
		"cancelled": StatusCancelled,
		"CANCELLED": StatusCancelled,
		"failed":    StatusFailed,
		"":          "",
	}
	for raw, want := range cases {
		e, err := ParseRedirectParams(url.Values{"invoice_id": {"inv"}, "status": {raw}}, time.Now())
		require.NoError(t, err)
		require.Equal(t, want, e.RawStatus, "status %q", raw)
	}
}

func TestParseRedirectParams_UnknownParamsIgnored(t *testing.T) {
	e, err := ParseRedirectParams(url.Values{
		"invoice_id":           {"inv"},
		"utm_source":           {"gateway"},
		"future_gateway_field": {"x"},
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "inv", e.InvoiceID)
}

func TestParseRedirectParams_TypeAndAdvisoryFields(t *testing.T) {
	e, err := ParseRedirectParams(url.Values{
		"invoice_id":     {"inv"},
		"type":           {"trainer_booking"},
		"amount":         {"1500"},
		"transaction_id": {"txn_9"},
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, types.PaymentTypeTrainerBooking, e.PaymentType)
	require.NotNil(t, e.Amount)
	require.Equal(t, float64(1500), *e.Amount)
	require.Equal(t, "txn_9", e.TransactionID)

	// unknown type falls back to generic, bad amount is dropped
	e, err = ParseRedirectParams(url.Values{"invoice_id": {"inv"}, "type": {"success"}, "amount": {"abc"}}, time.Now())
	require.NoError(t, err)
	require.Equal(t, types.PaymentTypeGeneric, e.PaymentType)
	require.Nil(t, e.Amount)
}

func TestParseRedirectParams_Deterministic(t *testing.T) {
	now := time.Unix(1700000000, 0)
	q := url.Values{"invoice_id": {"inv"}, "status": {"success"}}
	a, err := ParseRedirectParams(q, now)
	require.NoError(t, err)
	b, err := ParseRedirectParams(q, now)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
