package redirect

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/healthythako/payment-redirect/internal/app/service/deeplink"
	"github.com/healthythako/payment-redirect/internal/app/service/verification"
	"github.com/healthythako/payment-redirect/internal/models"
	"github.com/healthythako/payment-redirect/pkg/config"
	"github.com/healthythako/payment-redirect/pkg/logctx"
	"github.com/healthythako/payment-redirect/pkg/metrics"
	"github.com/healthythako/payment-redirect/pkg/types"
)

// Verifier is the authoritative status check. One outstanding call per
// attempt; retries live here in the controller, not in the client.
type Verifier interface {
	Verify(ctx context.Context, req *verification.Request) (*verification.Result, error)
}

// Recorder persists audit rows. Implementations must be fire-and-forget:
// a failed write never propagates back into the pipeline.
type Recorder interface {
	Record(ctx context.Context, entry *models.PaymentRedirectLog)
}

// Resolver is the pipeline surface consumed by the HTTP handlers.
type Resolver interface {
	Resolve(ctx context.Context, q url.Values, userID string) (*Resolution, error)
	RetryVerification(ctx context.Context, q url.Values, userID string) (*Resolution, error)
}

// Resolution is the pipeline's verdict for one redirect, ready for dispatch.
type Resolution struct {
	State        types.PipelineState  `json:"state"`
	Retryable    bool                 `json:"retryable"`
	Message      string               `json:"message,omitempty"`
	Event        *RedirectEvent       `json:"event,omitempty"`
	Verification *verification.Result `json:"verification,omitempty"`
	// DeepLink is the rendered native handoff URI; empty when no order id
	// could be parsed.
	DeepLink string `json:"deep_link,omitempty"`
}

// Controller owns the visible state machine: Verifying -> {Success,
// Cancelled, Failed}, terminals absorbing. One logical flow per redirect;
// concurrent resolves for the same invoice id share a single in-flight
// verification sequence (the verify endpoint is idempotent per invoice, the
// dedup only avoids pointless duplicate calls on double-taps).
type Controller struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	verifier Verifier
	recorder Recorder
	links    *deeplink.Builder

	flights singleflight.Group
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewController(cfg *config.Config, log *zap.SugaredLogger, verifier Verifier, recorder Recorder, links *deeplink.Builder) *Controller {
	return &Controller{
		cfg:      cfg,
		log:      log,
		verifier: verifier,
		recorder: recorder,
		links:    links,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Resolve drives one redirect through the pipeline: parse, classify against
// the verifier until terminal or the retry budget runs out, audit, and
// render the deep link. It returns an error only when ctx was cancelled
// mid-flight; an abandoned attempt mutates nothing and writes no audit row.
func (c *Controller) Resolve(ctx context.Context, q url.Values, userID string) (*Resolution, error) {
	log := logctx.FromCtx(ctx, c.log)

	event, err := ParseRedirectParams(q, time.Now())
	if err != nil {
		log.Warnw("redirect_parse_failed", "err", err.Error())
		res := &Resolution{State: types.PipelineStateFailed, Message: err.Error()}
		c.audit(ctx, nil, q, nil, res)
		metrics.ObservePipelineOutcome(string(res.State), string(types.PaymentTypeGeneric), false)
		return res, nil
	}

	log = log.With("invoice_id", event.InvoiceID)

	// Gateway-declared cancellation needs no server round trip.
	if event.Cancelled() {
		out := Classify(event, nil, nil)
		res := c.finish(ctx, q, event, nil, out, userID)
		log.Infow("redirect_resolved", "state", res.State)
		return res, nil
	}

	flight, err := c.await(ctx, event, userID)
	if err != nil {
		log.Infow("redirect_abandoned")
		return nil, err
	}

	res := c.finish(ctx, q, event, flight.res, flight.outcome, userID)
	log.Infow("redirect_resolved", "state", res.State, "retryable", res.Retryable)
	return res, nil
}

// RetryVerification is the manual "Retry Verification" action: it re-enters
// Verifying with a fresh retry budget.
func (c *Controller) RetryVerification(ctx context.Context, q url.Values, userID string) (*Resolution, error) {
	return c.Resolve(ctx, q, userID)
}

type flightResult struct {
	outcome   Outcome
	res       *verification.Result
	abandoned bool
}

// await joins (or starts) the per-invoice verification flight. A second
// concurrent resolve for the same invoice waits for the first flight's
// result instead of issuing its own network call.
func (c *Controller) await(ctx context.Context, event *RedirectEvent, userID string) (*flightResult, error) {
	ch := c.flights.DoChan(event.InvoiceID, func() (any, error) {
		return c.verifySequence(ctx, event, userID), nil
	})
	select {
	case <-ctx.Done():
		// Caller went away: discard the eventual result. The flight itself
		// still completes for any other waiters.
		return nil, ctx.Err()
	case r := <-ch:
		flight := r.Val.(*flightResult)
		if flight.abandoned {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// The initiating caller abandoned the flight but this waiter is
			// still alive; surface a retryable failure so it can retry.
			return &flightResult{outcome: Outcome{
				State:     types.PipelineStateFailed,
				Retryable: true,
				Message:   "verification was interrupted",
			}}, nil
		}
		return flight, nil
	}
}

// verifySequence polls the verifier until a terminal classification or the
// budget runs out. Only transport failures and PENDING are retried; a
// gateway-confirmed FAILED/CANCELLED never is.
func (c *Controller) verifySequence(ctx context.Context, event *RedirectEvent, userID string) *flightResult {
	policy := c.cfg.Verification
	budgetCtx, cancel := context.WithTimeout(ctx, policy.TotalBudget)
	defer cancel()

	req := &verification.Request{
		InvoiceID:   event.InvoiceID,
		Status:      event.RawStatus,
		PaymentType: event.PaymentType,
		UserID:      userID,
	}

	backoff := policy.InitialBackoff
	var out Outcome
	var res *verification.Result

	for attempt := 1; ; attempt++ {
		callCtx, cancelCall := context.WithTimeout(budgetCtx, policy.CallTimeout)
		start := time.Now()
		r, err := c.verifier.Verify(callCtx, req)
		cancelCall()

		out = Classify(event, r, err)
		res = r
		metrics.ObserveVerification(start, string(out.State))

		if ctx.Err() != nil {
			return &flightResult{abandoned: true}
		}
		if out.State == types.PipelineStateSuccess ||
			out.State == types.PipelineStateCancelled ||
			(out.State == types.PipelineStateFailed && !out.Retryable) {
			break
		}

		// Remaining verdicts: still Verifying (PENDING), or a retryable
		// transport failure.
		if attempt >= policy.MaxAttempts {
			out = Outcome{State: types.PipelineStateFailed, Retryable: true, Message: exhaustedMessage(out)}
			break
		}

		metrics.IncVerificationRetry()
		if err := c.sleep(budgetCtx, backoff); err != nil {
			if ctx.Err() != nil {
				return &flightResult{abandoned: true}
			}
			out = Outcome{State: types.PipelineStateFailed, Retryable: true, Message: exhaustedMessage(out)}
			break
		}
		backoff *= 2
	}

	return &flightResult{outcome: out, res: res}
}

func exhaustedMessage(last Outcome) string {
	if last.State == types.PipelineStateVerifying {
		return "payment is still pending; verification budget exhausted"
	}
	if last.Message != "" {
		return last.Message
	}
	return "verification budget exhausted"
}

// finish assembles the resolution, writes the audit row and renders the deep
// link. Ordering matters: classification is complete before the recorder is
// invoked, and the recorder's outcome never gates dispatch.
func (c *Controller) finish(ctx context.Context, q url.Values, event *RedirectEvent, vres *verification.Result, out Outcome, userID string) *Resolution {
	res := &Resolution{
		State:        out.State,
		Retryable:    out.Retryable,
		Message:      out.Message,
		Event:        event,
		Verification: vres,
	}

	c.audit(ctx, event, q, vres, res)
	metrics.ObservePipelineOutcome(string(res.State), string(event.PaymentType), res.Retryable)

	if link, err := c.links.Build(c.linkInput(event, vres, out, userID)); err == nil {
		res.DeepLink = link.String()
	} else {
		// unreachable with a parsed event; log loudly rather than fail dispatch
		logctx.FromCtx(ctx, c.log).Errorw("deep_link_build_failed", "invoice_id", event.InvoiceID, "err", err)
	}

	return res
}

func (c *Controller) linkInput(event *RedirectEvent, vres *verification.Result, out Outcome, userID string) deeplink.Input {
	in := deeplink.Input{
		OrderID: event.InvoiceID,
		State:   out.State,
		UserID:  userID,
	}
	if event.PaymentType != types.PaymentTypeGeneric {
		in.OrderType = string(event.PaymentType)
	}
	if vres != nil && vres.SettledAmount != nil {
		in.Amount = strconv.FormatFloat(*vres.SettledAmount, 'f', -1, 64)
	} else if event.Amount != nil {
		in.Amount = strconv.FormatFloat(*event.Amount, 'f', -1, 64)
	}
	if in.UserID == "" && vres != nil {
		in.UserID = vres.Metadata["user_id"]
	}
	return in
}

// audit derives the append-only row from the resolution. On a parse failure
// event is nil and the raw query parameters become the event payload.
func (c *Controller) audit(ctx context.Context, event *RedirectEvent, q url.Values, vres *verification.Result, res *Resolution) {
	entry := &models.PaymentRedirectLog{
		ResolvedState: res.State,
		Retryable:     res.Retryable,
		PaymentType:   types.PaymentTypeGeneric,
		ReceivedAt:    time.Now(),
	}
	if tid, ok := ctx.Value("traceID").(string); ok {
		entry.TraceID = tid
	}
	if res.Message != "" && res.State == types.PipelineStateFailed {
		entry.ErrorDetail = lo.ToPtr(res.Message)
	}

	if event != nil {
		entry.InvoiceID = event.InvoiceID
		entry.PaymentType = event.PaymentType
		entry.ReceivedAt = event.ReceivedAt
		if event.RawStatus != "" {
			entry.RawStatus = lo.ToPtr(event.RawStatus)
		}
		if b, err := json.Marshal(event); err == nil {
			entry.Event = datatypes.JSON(b)
		}
	} else if b, err := json.Marshal(q); err == nil {
		entry.Event = datatypes.JSON(b)
	}

	if vres != nil {
		if b, err := json.Marshal(vres); err == nil {
			entry.Verification = lo.ToPtr(datatypes.JSON(b))
		}
		if uid := vres.Metadata["user_id"]; uid != "" {
			entry.UserID = lo.ToPtr(uid)
		}
	}

	c.recorder.Record(ctx, entry)
}
