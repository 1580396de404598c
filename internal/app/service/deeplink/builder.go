package deeplink

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/healthythako/payment-redirect/pkg/config"
	"github.com/healthythako/payment-redirect/pkg/types"
)

const (
	// DefaultScheme is the native app's registered URI scheme.
	DefaultScheme = "healthythako"

	PathSuccess = "payment-success"
	PathCancel  = "payment-cancel"

	// SourceWebRedirect tags every deep link so the native client knows the
	// handoff came from the web redirect page.
	SourceWebRedirect = "web_redirect"
)

// Param is one query parameter. The native client parses the rendered URI
// positionally, so order is part of the contract and a plain slice is used
// instead of url.Values.
type Param struct {
	Key   string
	Value string
}

// Target is an ephemeral deep link value; it is rendered once and never
// persisted.
type Target struct {
	Scheme string
	Path   string
	Params []Param
}

// String renders the URI. Parameter order is exactly the order of Params.
func (t *Target) String() string {
	var b strings.Builder
	b.WriteString(t.Scheme)
	b.WriteString("://")
	b.WriteString(t.Path)
	for i, p := range t.Params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Input carries everything the builder needs. Optional fields are skipped
// when empty; OrderID is mandatory.
type Input struct {
	OrderID   string
	State     types.PipelineState
	OrderType string
	Amount    string
	UserID    string
}

// Builder constructs native-app handoff URIs. Pure except for the timestamp.
type Builder struct {
	scheme string
	now    func() time.Time
}

func NewBuilder(cfg *config.Config) *Builder {
	scheme := DefaultScheme
	if cfg != nil && cfg.Redirect.DeepLinkScheme != "" {
		scheme = cfg.Redirect.DeepLinkScheme
	}
	return &Builder{scheme: scheme, now: time.Now}
}

// Build renders the handoff target for a resolved redirect. The required
// parameters appear first and in fixed order: orderId, status, source,
// timestamp. An empty order id is a programming error, not a user-facing
// state; callers validate input before reaching this point.
func (b *Builder) Build(in Input) (*Target, error) {
	if in.OrderID == "" {
		return nil, fmt.Errorf("deep link requires a non-empty order id")
	}

	path := PathCancel
	status := "cancelled"
	if in.State == types.PipelineStateSuccess {
		path = PathSuccess
		status = "completed"
	}

	params := []Param{
		{Key: "orderId", Value: in.OrderID},
		{Key: "status", Value: status},
		{Key: "source", Value: SourceWebRedirect},
		{Key: "timestamp", Value: strconv.FormatInt(b.now().UnixMilli(), 10)},
	}
	if in.OrderType != "" {
		params = append(params, Param{Key: "orderType", Value: in.OrderType})
	}
	if in.Amount != "" {
		params = append(params, Param{Key: "amount", Value: in.Amount})
	}
	if in.UserID != "" {
		params = append(params, Param{Key: "userId", Value: in.UserID})
	}

	return &Target{Scheme: b.scheme, Path: path, Params: params}, nil
}
