package redirect

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthythako/payment-redirect/internal/app/service/verification"
	"github.com/healthythako/payment-redirect/pkg/types"
)

func event(rawStatus string) *RedirectEvent {
	return &RedirectEvent{
		InvoiceID:   "inv_1",
		RawStatus:   rawStatus,
		PaymentType: types.PaymentTypeGeneric,
		ReceivedAt:  time.Unix(1700000000, 0),
	}
}

func verified(status types.GatewayStatus) *verification.Result {
	return &verification.Result{Verified: true, GatewayStatus: status}
}

func TestClassify_CancellationShortCircuit(t *testing.T) {
	out := Classify(event(StatusCancelled), nil, nil)
	require.Equal(t, types.PipelineStateCancelled, out.State)
	require.False(t, out.Retryable)
}

func TestClassify_TransportFailureIsRetryable(t *testing.T) {
	verr := &verification.TransportError{Op: "call", Err: fmt.Errorf("connection refused")}
	out := Classify(event(StatusSuccess), nil, verr)
	require.Equal(t, types.PipelineStateFailed, out.State)
	require.True(t, out.Retryable)
}

func TestClassify_RejectedIsNotRetryable(t *testing.T) {
	for _, res := range []*verification.Result{
		{Verified: false, GatewayStatus: types.GatewayStatusCompleted},
		verified(types.GatewayStatusFailed),
		verified(types.GatewayStatusCancelled),
	} {
		out := Classify(event(StatusSuccess), res, nil)
		require.Equal(t, types.PipelineStateFailed, out.State)
		require.False(t, out.Retryable)
	}
}

func TestClassify_PendingStaysVerifying(t *testing.T) {
	out := Classify(event(StatusSuccess), verified(types.GatewayStatusPending), nil)
	require.Equal(t, types.PipelineStateVerifying, out.State)
	require.False(t, out.State.Terminal())
}

func TestClassify_VerifiedCompletedIsSuccess(t *testing.T) {
	out := Classify(event(StatusSuccess), verified(types.GatewayStatusCompleted), nil)
	require.Equal(t, types.PipelineStateSuccess, out.State)
}

// A raw success token from the URL must never be sufficient on its own.
func TestClassify_RawSuccessIsNeverTrusted(t *testing.T) {
	out := Classify(event(StatusSuccess), &verification.Result{Verified: false, GatewayStatus: types.GatewayStatusFailed}, nil)
	require.Equal(t, types.PipelineStateFailed, out.State)

	out = Classify(event(StatusSuccess), verified(types.GatewayStatusPending), nil)
	require.NotEqual(t, types.PipelineStateSuccess, out.State)
}

// Cancellation is evaluated before any verification verdict.
func TestClassify_OrderingCancellationWins(t *testing.T) {
	out := Classify(event(StatusCancelled), nil, nil)
	require.Equal(t, types.PipelineStateCancelled, out.State)

	// but once a verification attempt exists, its verdict is classified
	out = Classify(event(StatusCancelled), verified(types.GatewayStatusCompleted), nil)
	require.Equal(t, types.PipelineStateSuccess, out.State)
}
