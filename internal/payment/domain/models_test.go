package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusFailed, false},
		{StatusPending, StatusRefunded, false},
		{StatusProcessing, StatusConfirmed, true},
		{StatusProcessing, StatusDeclined, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusExpired, false},
		{StatusConfirmed, StatusRefunded, true},
		{StatusConfirmed, StatusCancelled, false},
		{StatusRefunded, StatusConfirmed, false},
		{StatusDeclined, StatusProcessing, false},
		{StatusExpired, StatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	for _, s := range []Status{StatusConfirmed, StatusDeclined, StatusFailed,
		StatusCancelled, StatusRefunded, StatusExpired} {
		assert.True(t, s.Terminal(), string(s))
	}
}

func TestStatusUnsuccessful(t *testing.T) {
	for _, s := range []Status{StatusDeclined, StatusFailed, StatusExpired} {
		assert.True(t, s.Unsuccessful(), string(s))
	}
	for _, s := range []Status{StatusPending, StatusProcessing, StatusConfirmed,
		StatusCancelled, StatusRefunded} {
		assert.False(t, s.Unsuccessful(), string(s))
	}
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, StatusConfirmed.Valid())
	assert.False(t, Status("settled").Valid())
	assert.True(t, MethodBankTransfer.Valid())
	assert.False(t, Method("cheque").Valid())
	assert.True(t, TypeSplitUpfront.Valid())
	assert.False(t, Type("installments").Valid())
}
