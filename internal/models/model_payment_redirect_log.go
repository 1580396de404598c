package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/healthythako/payment-redirect/pkg/types"
)

// PaymentRedirectLog is the append-only audit trail of gateway redirects.
// One row per redirect event, including synthetic/test events from the
// validation harness. Rows are never updated or deleted by this service;
// the admin read surface is the only consumer.
type PaymentRedirectLog struct {
	ID            string              `gorm:"column:id;primary_key;type:uuid" json:"id"`
	InvoiceID     string              `gorm:"column:invoice_id;type:varchar(128);not null;index:idx_invoice_id_id,priority:1" json:"invoice_id"`
	UserID        *string             `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	PaymentType   types.PaymentType   `gorm:"column:payment_type;type:varchar(32);not null" json:"payment_type"`
	RawStatus     *string             `gorm:"column:raw_status;type:varchar(32)" json:"raw_status"`
	ResolvedState types.PipelineState `gorm:"column:resolved_state;type:varchar(16);not null" json:"resolved_state"`
	Retryable     bool                `gorm:"column:retryable;not null" json:"retryable"`
	ErrorDetail   *string             `gorm:"column:error_detail;type:text" json:"error_detail"`
	// Event is the parsed redirect event as received from the gateway URL.
	Event datatypes.JSON `gorm:"column:event;type:jsonb" json:"event"`
	// Verification is the normalized verify-payment response, null when the
	// pipeline never reached (or never needed) the verification call.
	Verification *datatypes.JSON `gorm:"column:verification;type:jsonb" json:"verification"`
	TraceID      string          `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	ReceivedAt   time.Time       `gorm:"column:received_at;not null" json:"received_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (PaymentRedirectLog) TableName() string {
	return "payment_redirect_log"
}
