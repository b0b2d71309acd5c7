package client

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BasKiers/scrumpoker/domain"
)

func syncedStore(t *testing.T, participants ...domain.Participant) *Store {
	t.Helper()
	s := NewStore("room-1")
	state := domain.NewRoomState("room-1")
	for _, p := range participants {
		state.Participants[p.UserID] = p
	}
	require.NoError(t, s.HandleFrame(&domain.StateSyncFrame{Type: domain.FrameStateSync, State: state}))
	return s
}

func TestStore_StateSyncReplacesWholesale(t *testing.T) {
	t.Parallel()
	s := NewStore("room-1")
	assert.False(t, s.Synced())

	state := domain.NewRoomState("room-1")
	state.Participants["u1"] = domain.Participant{UserID: "u1", Name: "Alice", SelectedCard: "5"}
	state.CardStatus = domain.CardsRevealed

	require.NoError(t, s.HandleFrame(&domain.StateSyncFrame{Type: domain.FrameStateSync, State: state}))

	assert.True(t, s.Synced())
	assert.Equal(t, state, s.State())
}

func TestStore_OptimisticApplyTagsEvent(t *testing.T) {
	t.Parallel()
	s := syncedStore(t, domain.Participant{UserID: "u1", Name: "Alice"})

	ev, err := s.ApplyLocal(domain.NewSelectCardEvent("u1", "8"))
	require.NoError(t, err)

	assert.NotEmpty(t, ev.ID(), "outgoing event must carry a fresh id")
	assert.Equal(t, "8", s.State().Participants["u1"].SelectedCard)
}

// Applying a broadcast with an id twice yields the same state as once.
func TestStore_DuplicateBroadcastIsIgnored(t *testing.T) {
	t.Parallel()
	s := syncedStore(t, domain.Participant{UserID: "u1", Name: "Alice"})

	ev := domain.NewSelectCardEvent("u1", "5")
	ev.EventID = "ev-1"
	raw, err := domain.MarshalEventBroadcast(ev)
	require.NoError(t, err)
	frame, err := domain.ParseFrame(raw)
	require.NoError(t, err)

	require.NoError(t, s.HandleFrame(frame))
	once := s.State()

	// The same physical event delivered again, as after a reconnect.
	require.NoError(t, s.HandleFrame(frame))
	assert.Equal(t, once, s.State())
	assert.Equal(t, "5", s.State().Participants["u1"].SelectedCard)
}

func TestStore_SelfEchoIsSuppressed(t *testing.T) {
	t.Parallel()
	s := syncedStore(t, domain.Participant{UserID: "u1", Name: "Alice"})

	ev, err := s.ApplyLocal(domain.NewSelectCardEvent("u1", "5"))
	require.NoError(t, err)
	afterLocal := s.State()

	// The server echoes the accepted event back; the id filter makes
	// the replay a no-op even though the vote changed in between.
	echo, err := domain.MarshalEventBroadcast(ev)
	require.NoError(t, err)
	frame, err := domain.ParseFrame(echo)
	require.NoError(t, err)

	_, err = s.ApplyLocal(domain.NewSelectCardEvent("u1", "13"))
	require.NoError(t, err)
	require.NoError(t, s.HandleFrame(frame))

	assert.Equal(t, "13", s.State().Participants["u1"].SelectedCard)
	assert.NotEqual(t, afterLocal, s.State())
}

func TestStore_BroadcastWithoutIdAlwaysApplies(t *testing.T) {
	t.Parallel()
	s := syncedStore(t, domain.Participant{UserID: "u1", Name: "Alice"})

	// Synthesized coordinator events carry no id.
	raw, err := domain.MarshalEventBroadcast(domain.NewToggleCardsEvent(domain.CardsRevealed))
	require.NoError(t, err)
	frame, err := domain.ParseFrame(raw)
	require.NoError(t, err)

	require.NoError(t, s.HandleFrame(frame))
	assert.Equal(t, domain.CardsRevealed, s.State().CardStatus)
}

func TestDedupCache_EvictsOldestFirst(t *testing.T) {
	t.Parallel()
	c := newDedupCache(3)

	for i := 0; i < 3; i++ {
		assert.False(t, c.markSeen(fmt.Sprintf("ev-%d", i)))
	}
	for i := 0; i < 3; i++ {
		assert.True(t, c.markSeen(fmt.Sprintf("ev-%d", i)))
	}

	// ev-3 pushes ev-0 out.
	assert.False(t, c.markSeen("ev-3"))
	assert.False(t, c.markSeen("ev-0"), "oldest id must have been evicted")
	assert.True(t, c.markSeen("ev-3"))
}
