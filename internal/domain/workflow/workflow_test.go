package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devstudio/backoffice/pkg/errors"
)

func TestBudgetMachine_Transitions(t *testing.T) {
	sm := NewBudgetMachine()

	tests := []struct {
		name        string
		from        BudgetStatus
		action      BudgetAction
		expectedTo  BudgetStatus
		shouldError bool
	}{
		{"pending -> sent", BudgetPending, BudgetSend, BudgetSent, false},
		{"sent -> accepted", BudgetSent, BudgetAccept, BudgetAccepted, false},
		{"sent -> rejected", BudgetSent, BudgetReject, BudgetRejected, false},
		{"sent -> expired", BudgetSent, BudgetExpire, BudgetExpired, false},
		{"accepted -> cancelled", BudgetAccepted, BudgetCancel, BudgetCancelled, false},
		{"sent -> down_payment_paid", BudgetSent, BudgetPayDownPayment, BudgetDownPaymentPaid, false},
		{"accepted -> down_payment_paid", BudgetAccepted, BudgetPayDownPayment, BudgetDownPaymentPaid, false},
		{"down_payment_paid -> project_in_progress", BudgetDownPaymentPaid, BudgetStartProject, BudgetProjectInProgress, false},
		{"project_in_progress -> completed", BudgetProjectInProgress, BudgetCompleteProject, BudgetCompleted, false},
		{"completed -> finished", BudgetCompleted, BudgetPayFinal, BudgetFinished, false},

		{"pending cannot be accepted", BudgetPending, BudgetAccept, BudgetPending, true},
		{"pending cannot be paid", BudgetPending, BudgetPayDownPayment, BudgetPending, true},
		{"paid budget cannot be cancelled", BudgetDownPaymentPaid, BudgetCancel, BudgetDownPaymentPaid, true},
		{"final payment needs completion", BudgetProjectInProgress, BudgetPayFinal, BudgetProjectInProgress, true},
		{"finished is terminal", BudgetFinished, BudgetSend, BudgetFinished, true},
		{"rejected cannot be re-sent", BudgetRejected, BudgetSend, BudgetRejected, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := sm.Transition(tc.from, tc.action)
			if tc.shouldError {
				assert.Error(t, err)
				assert.True(t, errors.IsInvalidTransition(err))
				assert.Equal(t, tc.from, next, "state should not change on invalid transition")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedTo, next)
			}
		})
	}
}

func TestBudgetMachine_HappyPathReachesFinished(t *testing.T) {
	state := BudgetPending
	var err error
	for _, action := range []BudgetAction{BudgetSend, BudgetAccept, BudgetPayDownPayment, BudgetStartProject, BudgetCompleteProject, BudgetPayFinal} {
		state, err = Budgets.Transition(state, action)
		assert.NoError(t, err, string(action))
	}
	assert.Equal(t, BudgetFinished, state)
	assert.True(t, Budgets.IsTerminal(state))
}

func TestBudgetMachine_ValidTransitions(t *testing.T) {
	sm := NewBudgetMachine()
	assert.Equal(t, []BudgetAction{BudgetAccept, BudgetCancel, BudgetExpire, BudgetPayDownPayment, BudgetReject}, sm.ValidTransitions(BudgetSent))
	assert.Equal(t, []BudgetAction{BudgetCancel, BudgetSend}, sm.ValidTransitions(BudgetPending))
	assert.Empty(t, sm.ValidTransitions(BudgetFinished))
}

func TestInvalidTransitionMessage(t *testing.T) {
	_, err := Budgets.Transition(BudgetFinished, BudgetCancel)
	assert.EqualError(t, err, "cannot cancel budget in status 'finished'")
}

func TestProjectMachine(t *testing.T) {
	sm := NewProjectMachine()

	assert.True(t, sm.CanTransition(ProjectPlanning, ProjectStart))
	assert.True(t, sm.CanTransition(ProjectInProgress, ProjectHold))
	assert.True(t, sm.CanTransition(ProjectOnHold, ProjectResume))
	assert.True(t, sm.CanTransition(ProjectReview, ProjectResume))
	assert.True(t, sm.CanTransition(ProjectReview, ProjectComplete))
	assert.True(t, sm.CanTransition(ProjectCompleted, ProjectScheduleDelivery))
	assert.True(t, sm.CanTransition(ProjectDeliveryScheduled, ProjectDeliver))

	assert.False(t, sm.CanTransition(ProjectOnHold, ProjectComplete))
	assert.False(t, sm.CanTransition(ProjectCompleted, ProjectCancel))
	assert.False(t, sm.CanTransition(ProjectDelivered, ProjectResume))

	assert.True(t, sm.IsTerminal(ProjectDelivered))
	assert.True(t, sm.IsTerminal(ProjectCancelled))
	assert.False(t, sm.IsTerminal(ProjectDeliveryScheduled))

	action, ok := sm.Reaches(ProjectCompleted, ProjectDeliveryScheduled)
	assert.True(t, ok)
	assert.Equal(t, ProjectScheduleDelivery, action)
}

func TestPaymentMachine(t *testing.T) {
	sm := NewPaymentMachine()

	next, err := sm.Transition(PaymentPending, PaymentMarkPaid)
	assert.NoError(t, err)
	assert.Equal(t, PaymentPaid, next)

	_, err = sm.Transition(PaymentPaid, PaymentMarkFailed)
	assert.Error(t, err, "paid is final except for refund")
	assert.Equal(t, []PaymentAction{PaymentRefund}, sm.ValidTransitions(PaymentPaid))

	next, err = sm.Transition(PaymentFailed, PaymentRetry)
	assert.NoError(t, err)
	assert.Equal(t, PaymentPending, next)

	assert.True(t, sm.CanTransition(PaymentFailed, PaymentMarkPaid), "a late success settles a failed attempt")
	assert.True(t, sm.IsTerminal(PaymentRefunded))
}

func TestPaymentType_Valid(t *testing.T) {
	assert.True(t, PaymentDownPayment.Valid())
	assert.True(t, PaymentFull.Valid())
	assert.False(t, PaymentType("tip").Valid())
}
