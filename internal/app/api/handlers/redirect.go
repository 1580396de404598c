package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/healthythako/payment-redirect/internal/app/service/redirect"
	"github.com/healthythako/payment-redirect/internal/platform/auth"
	cfgpkg "github.com/healthythako/payment-redirect/pkg/config"
	"github.com/healthythako/payment-redirect/pkg/response"
	"github.com/healthythako/payment-redirect/pkg/types"
)

// sessionUserID extracts the marketplace user id from a bearer session
// token, when one was forwarded. The redirect flow works without it; the
// id only enriches the verification request and the audit row.
func sessionUserID(c *gin.Context, cfg *cfgpkg.Config) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	uid, err := auth.UserIDFromSessionToken(strings.TrimPrefix(h, "Bearer "), cfg.Session.JWTSecret)
	if err != nil {
		return ""
	}
	return uid
}

// webDestination renders the browser redirect target for a resolved
// pipeline state. The success destination carries the UX grace delay so the
// confirmation page can pause before navigating on.
func webDestination(cfg *cfgpkg.Config, res *redirect.Resolution) string {
	var base string
	q := url.Values{}
	q.Set("state", string(res.State))
	if res.Event != nil {
		q.Set("order_id", res.Event.InvoiceID)
	}

	switch res.State {
	case types.PipelineStateSuccess:
		base = cfg.Redirect.SuccessURL
		q.Set("delay_ms", strconv.FormatInt(cfg.Redirect.GraceDelay.Milliseconds(), 10))
	case types.PipelineStateCancelled:
		base = cfg.Redirect.CancelURL
	default:
		base = cfg.Redirect.FailureURL
		q.Set("retryable", strconv.FormatBool(res.Retryable))
		if res.Message != "" {
			q.Set("message", res.Message)
		}
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// @Summary      Payment gateway redirect landing
// @Description  Entry point for the gateway's return URL. Resolves the payment outcome and redirects the browser to the web confirmation surface, or to the native deep link when platform=mobile.
// @Tags         Payment
// @Param        invoice_id  query  string  false  "Gateway invoice id (order_id accepted as alias)"
// @Param        status      query  string  false  "Advisory gateway status"
// @Param        platform    query  string  false  "web (default) or mobile"
// @Success      302
// @Router       /payment/redirect [get]
func ApiPaymentRedirect(rsv redirect.Resolver, cfg *cfgpkg.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := rsv.Resolve(c.Request.Context(), c.Request.URL.Query(), sessionUserID(c, cfg))
		if err != nil {
			// client went away mid-verification; nothing to dispatch
			c.Status(http.StatusRequestTimeout)
			return
		}

		if c.Query("platform") == "mobile" && res.DeepLink != "" {
			c.Redirect(http.StatusFound, res.DeepLink)
			return
		}
		c.Redirect(http.StatusFound, webDestination(cfg, res))
	}
}

type resolveReq struct {
	// QueryString is the raw query portion of the gateway redirect URL.
	QueryString string `json:"query_string" binding:"required"`
	Platform    string `json:"platform"`
}

type resolveResp struct {
	State     types.PipelineState `json:"state"`
	Retryable bool                `json:"retryable"`
	Message   string              `json:"message,omitempty"`
	OrderID   string              `json:"order_id,omitempty"`
	DeepLink  string              `json:"deep_link,omitempty"`
	// RedirectURL is the web confirmation surface for this outcome.
	RedirectURL string `json:"redirect_url"`
	DelayMs     int64  `json:"delay_ms,omitempty"`
}

func toResolveResp(cfg *cfgpkg.Config, res *redirect.Resolution, platform string) resolveResp {
	out := resolveResp{
		State:       res.State,
		Retryable:   res.Retryable,
		Message:     res.Message,
		RedirectURL: webDestination(cfg, res),
	}
	if res.Event != nil {
		out.OrderID = res.Event.InvoiceID
	}
	if platform == "mobile" {
		out.DeepLink = res.DeepLink
	}
	if res.State == types.PipelineStateSuccess {
		out.DelayMs = cfg.Redirect.GraceDelay.Milliseconds()
	}
	return out
}

func resolveHandler(cfg *cfgpkg.Config, run func(context.Context, url.Values, string) (*redirect.Resolution, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resolveReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		q, err := url.ParseQuery(strings.TrimPrefix(req.QueryString, "?"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := run(c.Request.Context(), q, sessionUserID(c, cfg))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.Status(http.StatusRequestTimeout)
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(toResolveResp(cfg, res, req.Platform)))
	}
}

// @Summary      Resolve a payment redirect
// @Description  Runs the payment completion pipeline for the given redirect query string and returns the resolved state plus dispatch targets.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body handlers.ResolveRequestDoc true "Redirect resolve request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/redirect/resolve [post]
func ApiResolveRedirect(rsv redirect.Resolver, cfg *cfgpkg.Config) gin.HandlerFunc {
	return resolveHandler(cfg, rsv.Resolve)
}

// @Summary      Retry verification
// @Description  Manual "Retry Verification": re-enters the verifying state with a fresh retry budget.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body handlers.ResolveRequestDoc true "Redirect resolve request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payment/redirect/retry [post]
func ApiRetryRedirect(rsv redirect.Resolver, cfg *cfgpkg.Config) gin.HandlerFunc {
	return resolveHandler(cfg, rsv.RetryVerification)
}

func RegisterRedirectRoutes(r gin.IRouter, rsv redirect.Resolver, cfg *cfgpkg.Config) {
	r.POST("/redirect/resolve", ApiResolveRedirect(rsv, cfg))
	r.POST("/redirect/retry", ApiRetryRedirect(rsv, cfg))
}
