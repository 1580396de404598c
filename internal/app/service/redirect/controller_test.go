package redirect

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthythako/payment-redirect/internal/app/service/deeplink"
	"github.com/healthythako/payment-redirect/internal/app/service/verification"
	"github.com/healthythako/payment-redirect/internal/models"
	"github.com/healthythako/payment-redirect/pkg/config"
	"github.com/healthythako/payment-redirect/pkg/types"
)

type verifierFunc func(ctx context.Context, req *verification.Request) (*verification.Result, error)

func (f verifierFunc) Verify(ctx context.Context, req *verification.Request) (*verification.Result, error) {
	return f(ctx, req)
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []*models.PaymentRedirectLog
}

func (r *captureRecorder) Record(_ context.Context, e *models.PaymentRedirectLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *captureRecorder) all() []*models.PaymentRedirectLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.PaymentRedirectLog(nil), r.entries...)
}

func testConfig() *config.Config {
	return &config.Config{
		Verification: config.VerificationConfig{
			CallTimeout:    200 * time.Millisecond,
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			TotalBudget:    2 * time.Second,
		},
		Redirect: config.RedirectConfig{
			DeepLinkScheme: "healthythako",
			GraceDelay:     2 * time.Second,
		},
	}
}

func newTestController(v Verifier, rec Recorder) *Controller {
	cfg := testConfig()
	return NewController(cfg, zap.NewNop().Sugar(), v, rec, deeplink.NewBuilder(cfg))
}

func transportErr() error {
	return &verification.TransportError{Op: "call", Err: fmt.Errorf("connection refused")}
}

func TestResolve_CancelledWithoutVerificationCall(t *testing.T) {
	var calls atomic.Int64
	v := verifierFunc(func(context.Context, *verification.Request) (*verification.Result, error) {
		calls.Add(1)
		return nil, transportErr()
	})
	rec := &captureRecorder{}

	res, err := newTestController(v, rec).Resolve(context.Background(), url.Values{
		"invoice_id": {"inv_cancel"},
		"status":     {"cancelled"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, types.PipelineStateCancelled, res.State)
	require.Zero(t, calls.Load())

	entries := rec.all()
	require.Len(t, entries, 1)
	require.Equal(t, "inv_cancel", entries[0].InvoiceID)
	require.Equal(t, types.PipelineStateCancelled, entries[0].ResolvedState)
	require.Nil(t, entries[0].Verification)
}

func TestResolve_SuccessWritesAuditAndDeepLink(t *testing.T) {
	amount := 1500.0
	var seenInvoice atomic.Value
	v := verifierFunc(func(_ context.Context, req *verification.Request) (*verification.Result, error) {
		seenInvoice.Store(req.InvoiceID)
		return &verification.Result{
			Verified:      true,
			GatewayStatus: types.GatewayStatusCompleted,
			SettledAmount: &amount,
		}, nil
	})
	rec := &captureRecorder{}

	res, err := newTestController(v, rec).Resolve(context.Background(), url.Values{
		"invoice_id": {"order_test_456"},
		"status":     {"success"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "order_test_456", seenInvoice.Load())
	require.Equal(t, types.PipelineStateSuccess, res.State)

	require.True(t, strings.HasPrefix(res.DeepLink,
		"healthythako://payment-success?orderId=order_test_456&status=completed&source=web_redirect&timestamp="))
	require.True(t, strings.HasSuffix(res.DeepLink, "&amount=1500"))

	entries := rec.all()
	require.Len(t, entries, 1)
	require.Equal(t, types.PipelineStateSuccess, entries[0].ResolvedState)
	require.NotNil(t, entries[0].Verification)
}

func TestResolve_RawSuccessAloneNeverSucceeds(t *testing.T) {
	v := verifierFunc(func(context.Context, *verification.Request) (*verification.Result, error) {
		return &verification.Result{Verified: false, GatewayStatus: types.GatewayStatusFailed}, nil
	})

	res, err := newTestController(v, &captureRecorder{}).Resolve(context.Background(), url.Values{
		"invoice_id": {"inv_spoof"},
		"status":     {"success"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, types.PipelineStateFailed, res.State)
	require.False(t, res.Retryable)
}

func TestResolve_TransportFailureThenManualRetry(t *testing.T) {
	var healthy atomic.Bool
	var calls atomic.Int64
	v := verifierFunc(func(context.Context, *verification.Request) (*verification.Result, error) {
		calls.Add(1)
		if healthy.Load() {
			return &verification.Result{Verified: true, GatewayStatus: types.GatewayStatusCompleted}, nil
		}
		return nil, transportErr()
	})
	rec := &captureRecorder{}
	ctrl := newTestController(v, rec)
	q := url.Values{"invoice_id": {"inv_flaky"}}

	res, err := ctrl.Resolve(context.Background(), q, "")
	require.NoError(t, err)
	require.Equal(t, types.PipelineStateFailed, res.State)
	require.True(t, res.Retryable)
	require.Equal(t, int64(3), calls.Load())

	healthy.Store(true)
	res, err = ctrl.RetryVerification(context.Background(), q, "")
	require.NoError(t, err)
	require.Equal(t, types.PipelineStateSuccess, res.State)
}

func TestResolve_PendingExhaustsBudget(t *testing.T) {
	var calls atomic.Int64
	v := verifierFunc(func(context.Context, *verification.Request) (*verification.Result, error) {
		calls.Add(1)
		return &verification.Result{Verified: true, GatewayStatus: types.GatewayStatusPending}, nil
	})

	res, err := newTestController(v, &captureRecorder{}).Resolve(context.Background(), url.Values{
		"invoice_id": {"inv_pending"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, types.PipelineStateFailed, res.State)
	require.True(t, res.Retryable)
	require.NotEqual(t, types.PipelineStateSuccess, res.State)
	require.Equal(t, int64(3), calls.Load())
}

func TestResolve_ConfirmedFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	v := verifierFunc(func(context.Context, *verification.Request) (*verification.Result, error) {
		calls.Add(1)
		return &verification.Result{Verified: true, GatewayStatus: types.GatewayStatusFailed, ErrorDetail: "insufficient funds"}, nil
	})

	res, err := newTestController(v, &captureRecorder{}).Resolve(context.Background(), url.Values{
		"invoice_id": {"inv_declined"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, types.PipelineStateFailed, res.State)
	require.False(t, res.Retryable)
	require.Equal(t, "insufficient funds", res.Message)
	require.Equal(t, int64(1), calls.Load())
}

func TestResolve_ConcurrentSameInvoiceSharesOneCall(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	v := verifierFunc(func(ctx context.Context, _ *verification.Request) (*verification.Result, error) {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, &verification.TransportError{Op: "call", Err: ctx.Err()}
		}
		return &verification.Result{Verified: true, GatewayStatus: types.GatewayStatusCompleted}, nil
	})
	ctrl := newTestController(v, &captureRecorder{})
	q := url.Values{"invoice_id": {"inv_dup"}}

	var wg sync.WaitGroup
	states := make([]types.PipelineState, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := ctrl.Resolve(context.Background(), q, "")
			errs[i] = err
			if res != nil {
				states[i] = res.State
			}
		}(i)
	}

	// let both goroutines join the flight before releasing the verifier
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int64(1), calls.Load())
	require.Equal(t, types.PipelineStateSuccess, states[0])
	require.Equal(t, types.PipelineStateSuccess, states[1])
}

func TestResolve_AbandonedMidVerificationSkipsAudit(t *testing.T) {
	v := verifierFunc(func(ctx context.Context, _ *verification.Request) (*verification.Result, error) {
		<-ctx.Done()
		return nil, &verification.TransportError{Op: "call", Err: ctx.Err()}
	})
	rec := &captureRecorder{}
	ctrl := newTestController(v, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Resolve(ctx, url.Values{"invoice_id": {"inv_gone"}}, "")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.Error(t, <-done)

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, rec.all())
}

func TestResolve_ParseFailureAuditedWithoutVerification(t *testing.T) {
	var calls atomic.Int64
	v := verifierFunc(func(context.Context, *verification.Request) (*verification.Result, error) {
		calls.Add(1)
		return nil, transportErr()
	})
	rec := &captureRecorder{}

	res, err := newTestController(v, rec).Resolve(context.Background(), url.Values{"status": {"success"}}, "")
	require.NoError(t, err)
	require.Equal(t, types.PipelineStateFailed, res.State)
	require.False(t, res.Retryable)
	require.Zero(t, calls.Load())

	entries := rec.all()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ErrorDetail)
	require.Empty(t, entries[0].InvoiceID)
}
