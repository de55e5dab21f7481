package workflow

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentExpired   PaymentStatus = "expired"
	PaymentCancelled PaymentStatus = "cancelled"
)

// PaymentAction moves a payment between statuses.
type PaymentAction string

const (
	PaymentMarkPaid   PaymentAction = "mark_paid"
	PaymentMarkFailed PaymentAction = "mark_failed"
	PaymentRetry      PaymentAction = "retry"
	PaymentRefund     PaymentAction = "refund"
	PaymentExpire     PaymentAction = "expire"
	PaymentCancel     PaymentAction = "cancel"
)

// PaymentType says which part of the budget a payment settles.
type PaymentType string

const (
	PaymentDownPayment  PaymentType = "down_payment"
	PaymentFinalPayment PaymentType = "final_payment"
	PaymentFull         PaymentType = "full"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentDownPayment, PaymentFinalPayment, PaymentFull:
		return true
	}
	return false
}

// NewPaymentMachine builds the payment lifecycle. Paid only leaves through a
// refund. A failed attempt may be retried, which returns it to pending.
// An expired checkout may also be retried.
func NewPaymentMachine() *Machine[PaymentStatus, PaymentAction] {
	m := newMachine[PaymentStatus, PaymentAction]("payment", PaymentRefunded, PaymentCancelled)

	m.add(PaymentMarkPaid, PaymentPaid, PaymentPending, PaymentFailed, PaymentExpired)
	m.add(PaymentMarkFailed, PaymentFailed, PaymentPending)
	m.add(PaymentRetry, PaymentPending, PaymentFailed, PaymentExpired)
	m.add(PaymentRefund, PaymentRefunded, PaymentPaid)
	m.add(PaymentExpire, PaymentExpired, PaymentPending)
	m.add(PaymentCancel, PaymentCancelled, PaymentPending, PaymentFailed, PaymentExpired)
	return m
}

// Payments is the shared payment machine.
var Payments = NewPaymentMachine()
