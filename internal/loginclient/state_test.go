package loginclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_HappyPath(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, StateAnonymous, m.State())

	steps := []struct {
		event    Event
		expected State
	}{
		{EventInitiate, StateAnonymous},
		{EventCodeReceived, StateExchanging},
		{EventExchangeSucceeded, StateAuthenticated},
		{EventProfileFetched, StateAuthenticated},
	}

	for _, step := range steps {
		next, err := m.Fire(step.event)
		require.NoError(t, err, "event %s", step.event)
		assert.Equal(t, step.expected, next)
	}

	assert.Equal(t, []State{StateAnonymous, StateAnonymous, StateExchanging, StateAuthenticated}, m.History())
}

func TestMachine_FailuresAllowRestart(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
	}{
		{"exchange failed", []Event{EventCodeReceived, EventExchangeFailed}},
		{"profile failed", []Event{EventCodeReceived, EventExchangeSucceeded, EventProfileFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			for _, event := range tt.events {
				_, err := m.Fire(event)
				require.NoError(t, err)
			}

			assert.Equal(t, StateFailed, m.State())
			assert.True(t, m.State().LoginAffordance())

			next, err := m.Fire(EventInitiate)
			require.NoError(t, err)
			assert.Equal(t, StateAnonymous, next)
		})
	}
}

func TestMachine_RejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []Event
		event Event
	}{
		{"exchange result while anonymous", nil, EventExchangeSucceeded},
		{"profile while anonymous", nil, EventProfileFetched},
		{"second code while exchanging", []Event{EventCodeReceived}, EventCodeReceived},
		{"initiate while exchanging", []Event{EventCodeReceived}, EventInitiate},
		{"code after failure", []Event{EventCodeReceived, EventExchangeFailed}, EventCodeReceived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			for _, event := range tt.setup {
				_, err := m.Fire(event)
				require.NoError(t, err)
			}
			before := m.State()

			_, err := m.Fire(tt.event)

			var transitionErr *TransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, before, transitionErr.From)
			assert.Equal(t, tt.event, transitionErr.Event)
			assert.Equal(t, before, m.State())
		})
	}
}

func TestState_LoginAffordance(t *testing.T) {
	assert.True(t, StateAnonymous.LoginAffordance())
	assert.False(t, StateExchanging.LoginAffordance())
	assert.False(t, StateAuthenticated.LoginAffordance())
	assert.True(t, StateFailed.LoginAffordance())
	assert.True(t, StateFailed.CanHandle(EventInitiate))
	assert.False(t, StateFailed.CanHandle(EventProfileFetched))
}
