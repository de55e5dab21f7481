package workflow

// BudgetStatus is the lifecycle position of a budget.
type BudgetStatus string

const (
	BudgetPending           BudgetStatus = "pending"
	BudgetSent              BudgetStatus = "sent"
	BudgetAccepted          BudgetStatus = "accepted"
	BudgetRejected          BudgetStatus = "rejected"
	BudgetExpired           BudgetStatus = "expired"
	BudgetCancelled         BudgetStatus = "cancelled"
	BudgetDownPaymentPaid   BudgetStatus = "down_payment_paid"
	BudgetProjectInProgress BudgetStatus = "project_in_progress"
	BudgetCompleted         BudgetStatus = "completed"
	BudgetFinished          BudgetStatus = "finished"
)

// BudgetAction moves a budget between statuses.
type BudgetAction string

const (
	BudgetSend            BudgetAction = "send"
	BudgetAccept          BudgetAction = "accept"
	BudgetReject          BudgetAction = "reject"
	BudgetExpire          BudgetAction = "expire"
	BudgetCancel          BudgetAction = "cancel"
	BudgetPayDownPayment  BudgetAction = "pay_down_payment"
	BudgetStartProject    BudgetAction = "start_project"
	BudgetCompleteProject BudgetAction = "complete_project"
	BudgetPayFinal        BudgetAction = "pay_final"
)

// NewBudgetMachine builds the budget lifecycle:
//
//	pending ─send─► sent ─accept─► accepted
//	                 │                │
//	                 └─pay_down_payment┴─► down_payment_paid ─start_project─►
//	project_in_progress ─complete_project─► completed ─pay_final─► finished
//
// A sent budget may also be rejected or expire. Anything before payment may
// be cancelled.
func NewBudgetMachine() *Machine[BudgetStatus, BudgetAction] {
	m := newMachine[BudgetStatus, BudgetAction]("budget",
		BudgetRejected, BudgetExpired, BudgetCancelled, BudgetFinished)

	m.add(BudgetSend, BudgetSent, BudgetPending)
	m.add(BudgetAccept, BudgetAccepted, BudgetSent)
	m.add(BudgetReject, BudgetRejected, BudgetSent)
	m.add(BudgetExpire, BudgetExpired, BudgetSent)
	m.add(BudgetCancel, BudgetCancelled, BudgetPending, BudgetSent, BudgetAccepted)
	m.add(BudgetPayDownPayment, BudgetDownPaymentPaid, BudgetSent, BudgetAccepted)
	m.add(BudgetStartProject, BudgetProjectInProgress, BudgetDownPaymentPaid)
	m.add(BudgetCompleteProject, BudgetCompleted, BudgetProjectInProgress)
	m.add(BudgetPayFinal, BudgetFinished, BudgetCompleted)
	return m
}

// Budgets is the shared budget machine. It is read-only after init.
var Budgets = NewBudgetMachine()
