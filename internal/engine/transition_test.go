package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gridgate/internal/permission"
)

func TestBaseTableCoreGraph(t *testing.T) {
	table := BaseTable()

	cases := []struct {
		from    permission.Status
		kind    permission.EventKind
		allowed bool
	}{
		{permission.StatusCreated, permission.KindValidated, true},
		{permission.StatusCreated, permission.KindMalformed, true},
		{permission.StatusCreated, permission.KindAccepted, false},
		{permission.StatusValidated, permission.KindSent, true},
		{permission.StatusValidated, permission.KindUnableToSend, true},
		{permission.StatusUnableToSend, permission.KindValidated, true},
		{permission.StatusSent, permission.KindAccepted, true},
		{permission.StatusSent, permission.KindRejected, true},
		{permission.StatusSent, permission.KindTimedOut, true},
		{permission.StatusAccepted, permission.KindRevoked, true},
		{permission.StatusAccepted, permission.KindFulfilled, true},
		{permission.StatusAccepted, permission.KindTerminated, true},
		{permission.StatusAccepted, permission.KindTerminationRequested, true},
		{permission.StatusRequiresExternalTermination, permission.KindTerminated, true},
		{permission.StatusRequiresExternalTermination, permission.KindExternallyTerminated, true},

		// Supersession escapes out of otherwise-final states.
		{permission.StatusFulfilled, permission.KindExternallyTerminated, true},
		{permission.StatusFulfilled, permission.KindRevoked, true},
		{permission.StatusRejected, permission.KindValidated, true},

		// No escape hatches elsewhere.
		{permission.StatusRejected, permission.KindSent, false},
		{permission.StatusTimedOut, permission.KindAccepted, false},
		{permission.StatusMalformed, permission.KindValidated, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, table.Allowed(tc.from, tc.kind),
			"%s + %s", tc.from, tc.kind)
	}
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	base := BaseTable()
	extended := base.With(permission.StatusValidated, permission.KindPendingAcknowledgement)

	assert.True(t, extended.Allowed(permission.StatusValidated, permission.KindPendingAcknowledgement))
	assert.False(t, base.Allowed(permission.StatusValidated, permission.KindPendingAcknowledgement))
}

func TestWithoutDoesNotMutateReceiver(t *testing.T) {
	base := BaseTable()
	restricted := base.Without(permission.StatusSent, permission.KindTimedOut)

	assert.False(t, restricted.Allowed(permission.StatusSent, permission.KindTimedOut))
	assert.True(t, base.Allowed(permission.StatusSent, permission.KindTimedOut))
}
