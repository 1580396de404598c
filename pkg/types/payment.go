package types

import "strings"

// PaymentType identifies which marketplace product a checkout paid for.
type PaymentType string

const (
	PaymentTypeTrainerBooking PaymentType = "trainer_booking"
	PaymentTypeGymMembership  PaymentType = "gym_membership"
	PaymentTypeServiceOrder   PaymentType = "service_order"
	PaymentTypeGeneric        PaymentType = "generic"
)

// ParsePaymentType maps the gateway's `type` query parameter onto a known
// payment type. Unknown or empty values fall back to generic rather than
// failing the redirect.
func ParsePaymentType(s string) PaymentType {
	switch PaymentType(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentTypeTrainerBooking:
		return PaymentTypeTrainerBooking
	case PaymentTypeGymMembership:
		return PaymentTypeGymMembership
	case PaymentTypeServiceOrder:
		return PaymentTypeServiceOrder
	default:
		return PaymentTypeGeneric
	}
}

// GatewayStatus is the settlement status reported by the verification service.
type GatewayStatus string

const (
	GatewayStatusCompleted GatewayStatus = "COMPLETED"
	GatewayStatusPending   GatewayStatus = "PENDING"
	GatewayStatusFailed    GatewayStatus = "FAILED"
	GatewayStatusCancelled GatewayStatus = "CANCELLED"
)

// Known reports whether s is one of the statuses the verification service is
// allowed to return. A response carrying anything else is treated as
// malformed by the client.
func (s GatewayStatus) Known() bool {
	switch s {
	case GatewayStatusCompleted, GatewayStatusPending, GatewayStatusFailed, GatewayStatusCancelled:
		return true
	}
	return false
}

// PipelineState is the redirect pipeline's visible state.
type PipelineState string

const (
	PipelineStateVerifying PipelineState = "verifying"
	PipelineStateSuccess   PipelineState = "success"
	PipelineStateCancelled PipelineState = "cancelled"
	PipelineStateFailed    PipelineState = "failed"
)

// Terminal reports whether the state machine can leave s. Verifying is the
// only non-terminal state.
func (s PipelineState) Terminal() bool {
	return s != PipelineStateVerifying
}
