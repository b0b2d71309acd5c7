package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Stable timestamps so reduced states compare exactly.
	nowMillis = func() int64 { return 1700000000000 }
}

var ignoreTimestamps = cmpopts.IgnoreFields(Participant{}, "LastEventTimestamp")

func stateWith(participants ...Participant) RoomState {
	s := NewRoomState("room-1")
	for _, p := range participants {
		s.Participants[p.UserID] = p
	}
	return s
}

func TestReduce(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		desc     string
		initial  RoomState
		event    Event
		expected RoomState
		wantErr  error
	}{
		{
			desc:    "connect adds a new participant",
			initial: stateWith(),
			event:   NewConnectEvent("u1", "Alice"),
			expected: stateWith(
				Participant{UserID: "u1", Name: "Alice"},
			),
		},
		{
			desc: "connect keeps the existing vote on rejoin",
			initial: stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"},
			),
			event: NewConnectEvent("u1", "Alice"),
			expected: stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"},
			),
		},
		{
			desc:    "connect restores a vote recovered from storage",
			initial: stateWith(),
			event:   &ConnectEvent{Type: EventConnect, UserID: "u1", Name: "Alice", SelectedCard: "8"},
			expected: stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "8"},
			),
		},
		{
			desc: "disconnect removes the participant",
			initial: stateWith(
				Participant{UserID: "u1", Name: "Alice"},
				Participant{UserID: "u2", Name: "Bob"},
			),
			event: NewDisconnectEvent("u1"),
			expected: stateWith(
				Participant{UserID: "u2", Name: "Bob"},
			),
		},
		{
			desc:     "disconnect of an unknown participant is a no-op",
			initial:  stateWith(Participant{UserID: "u2", Name: "Bob"}),
			event:    NewDisconnectEvent("ghost"),
			expected: stateWith(Participant{UserID: "u2", Name: "Bob"}),
		},
		{
			desc:    "select_card records the vote",
			initial: stateWith(Participant{UserID: "u1", Name: "Alice"}),
			event:   NewSelectCardEvent("u1", "13"),
			expected: stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "13"},
			),
		},
		{
			desc:     "select_card for an unknown participant is a no-op",
			initial:  stateWith(Participant{UserID: "u1", Name: "Alice"}),
			event:    NewSelectCardEvent("ghost", "13"),
			expected: stateWith(Participant{UserID: "u1", Name: "Alice"}),
		},
		{
			desc:    "set_name renames the participant",
			initial: stateWith(Participant{UserID: "u1", Name: "Alice"}),
			event:   NewSetNameEvent("u1", "Alicia"),
			expected: stateWith(
				Participant{UserID: "u1", Name: "Alicia"},
			),
		},
		{
			desc:    "set_name for an unknown participant fails",
			initial: stateWith(),
			event:   NewSetNameEvent("ghost", "Alicia"),
			wantErr: ErrUnknownParticipant,
		},
		{
			desc:     "toggle_cards sets the status directly",
			initial:  stateWith(),
			event:    NewToggleCardsEvent(CardsRevealed),
			expected: RoomState{RoomID: "room-1", Participants: map[string]Participant{}, CardStatus: CardsRevealed},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			before := tc.initial.Clone()

			next, err := Reduce(tc.initial, tc.event)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, cmp.Diff(before, tc.initial, ignoreTimestamps), "failed reduce must not touch state")
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tc.expected, next, ignoreTimestamps))
			assert.Empty(t, cmp.Diff(before, tc.initial, ignoreTimestamps), "input state must stay untouched")
		})
	}
}

func TestReduce_ResetLaw(t *testing.T) {
	t.Parallel()

	states := []RoomState{
		stateWith(),
		stateWith(Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"}),
		func() RoomState {
			s := stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"},
				Participant{UserID: "u2", Name: "Bob", SelectedCard: "8"},
				Participant{UserID: "u3"},
			)
			s.CardStatus = CardsRevealed
			return s
		}(),
	}

	for _, s := range states {
		next, err := Reduce(s, NewResetEvent())
		require.NoError(t, err)
		assert.Equal(t, CardsHidden, next.CardStatus)
		for id, p := range next.Participants {
			assert.Emptyf(t, p.SelectedCard, "participant %s still holds a card after reset", id)
		}
	}
}

func TestReduce_Determinism(t *testing.T) {
	t.Parallel()

	events := []Event{
		NewConnectEvent("u1", "Alice"),
		NewConnectEvent("u2", "Bob"),
		NewSelectCardEvent("u1", "5"),
		NewSetNameEvent("u2", "Bobby"),
		NewSelectCardEvent("u2", "8"),
		NewToggleCardsEvent(CardsRevealed),
		NewResetEvent(),
		NewDisconnectEvent("u1"),
	}

	replay := func() RoomState {
		s := NewRoomState("room-1")
		for _, ev := range events {
			next, err := Reduce(s, ev)
			require.NoError(t, err)
			s = next
		}
		return s
	}

	assert.Empty(t, cmp.Diff(replay(), replay()))
}

func TestReduce_UnknownEventType(t *testing.T) {
	t.Parallel()

	type bogusEvent struct{ Event }
	s := stateWith(Participant{UserID: "u1", Name: "Alice"})

	next, err := Reduce(s, bogusEvent{})
	assert.ErrorIs(t, err, ErrUnknownEventType)
	assert.Empty(t, cmp.Diff(s, next))
}

func TestAllNamedSelected(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		desc     string
		state    RoomState
		expected bool
	}{
		{
			desc:     "empty room never auto-reveals",
			state:    stateWith(),
			expected: false,
		},
		{
			desc:     "spectators alone never auto-reveal",
			state:    stateWith(Participant{UserID: "u1"}),
			expected: false,
		},
		{
			desc: "one named participant missing a card",
			state: stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"},
				Participant{UserID: "u2", Name: "Bob"},
			),
			expected: false,
		},
		{
			desc: "all named participants voted",
			state: stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"},
				Participant{UserID: "u2", Name: "Bob", SelectedCard: "?"},
			),
			expected: true,
		},
		{
			desc: "spectators do not block the reveal",
			state: stateWith(
				Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"},
				Participant{UserID: "u2"},
			),
			expected: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, AllNamedSelected(tc.state))
		})
	}
}
