package valueobject

// PartnerEventType is the closed set of webhook event types the lending
// partner delivers. Unknown strings map to PartnerEventUnknown, which the
// processor acknowledges without applying (forward compatibility).
type PartnerEventType int

const (
	PartnerEventUnknown PartnerEventType = iota
	PartnerEventPaymentCaptured
	PartnerEventPaymentFailed
	PartnerEventLoanDisbursed
	PartnerEventEmiDue
)

const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
	eventLoanDisbursed   = "loan.disbursed"
	eventEmiDue          = "loan.emi.due"
)

// ParsePartnerEventType maps a wire string to its event type.
func ParsePartnerEventType(s string) PartnerEventType {
	switch s {
	case eventPaymentCaptured:
		return PartnerEventPaymentCaptured
	case eventPaymentFailed:
		return PartnerEventPaymentFailed
	case eventLoanDisbursed:
		return PartnerEventLoanDisbursed
	case eventEmiDue:
		return PartnerEventEmiDue
	default:
		return PartnerEventUnknown
	}
}

// String returns the wire representation.
func (t PartnerEventType) String() string {
	switch t {
	case PartnerEventPaymentCaptured:
		return eventPaymentCaptured
	case PartnerEventPaymentFailed:
		return eventPaymentFailed
	case PartnerEventLoanDisbursed:
		return eventLoanDisbursed
	case PartnerEventEmiDue:
		return eventEmiDue
	default:
		return "unknown"
	}
}
