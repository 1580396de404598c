package redirect

import (
	"github.com/healthythako/payment-redirect/internal/app/service/verification"
	"github.com/healthythako/payment-redirect/pkg/types"
)

// Outcome is a classified verdict for one verification attempt.
type Outcome struct {
	State     types.PipelineState
	Retryable bool
	Message   string
}

// Classify maps a redirect event plus the latest verification attempt (a
// result or an error, not both) to the next pipeline state. Rules are
// evaluated in order and the first match wins:
//
//  1. gateway-declared cancellation, no verification attempted -> Cancelled
//  2. transport/parse failure during verification -> Failed, retryable
//  3. unverified, or gateway FAILED/CANCELLED -> Failed, not retryable
//  4. verified but PENDING -> Verifying (caller polls within its budget)
//  5. verified and COMPLETED -> Success
//
// The ordering is load-bearing. Cancellation short-circuits the verification
// round trip entirely, a transport error must stay distinguishable from a
// gateway-confirmed failure, and PENDING is the only non-terminal verdict.
func Classify(event *RedirectEvent, res *verification.Result, verr error) Outcome {
	if event.Cancelled() && res == nil && verr == nil {
		return Outcome{State: types.PipelineStateCancelled, Message: "payment cancelled at gateway"}
	}

	if verr != nil {
		if verification.IsTransport(verr) {
			return Outcome{State: types.PipelineStateFailed, Retryable: true, Message: verr.Error()}
		}
		return Outcome{State: types.PipelineStateFailed, Message: verr.Error()}
	}

	if !res.Verified || res.GatewayStatus == types.GatewayStatusFailed || res.GatewayStatus == types.GatewayStatusCancelled {
		msg := res.ErrorDetail
		if msg == "" {
			msg = "payment was not completed"
		}
		return Outcome{State: types.PipelineStateFailed, Message: msg}
	}

	if res.GatewayStatus == types.GatewayStatusPending {
		return Outcome{State: types.PipelineStateVerifying, Message: "payment still pending at gateway"}
	}

	return Outcome{State: types.PipelineStateSuccess}
}
