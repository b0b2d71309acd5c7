package client

import (
	"sync"

	"github.com/google/uuid"

	"github.com/BasKiers/scrumpoker/domain"
)

const dedupCapacity = 100

// Store mirrors the room state locally for optimistic UI. Local
// actions run through the same reducer as the server before they are
// sent; incoming broadcasts pass an idempotent filter so self-echo and
// redelivery after a reconnect apply at most once.
type Store struct {
	mu     sync.Mutex
	state  domain.RoomState
	synced bool
	seen   *dedupCache

	newEventID func() string
}

func NewStore(roomID string) *Store {
	return &Store{
		state:      domain.NewRoomState(roomID),
		seen:       newDedupCache(dedupCapacity),
		newEventID: uuid.NewString,
	}
}

// ApplyLocal tags the event with a fresh id, applies it optimistically
// and returns the tagged event for the transport to send. The id is
// recorded as seen so the server's broadcast of this same event is a
// no-op here.
func (s *Store) ApplyLocal(event domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newEventID()
	tagEvent(event, id)

	next, err := domain.Reduce(s.state, event)
	if err != nil {
		return nil, err
	}
	s.state = next
	s.seen.markSeen(id)
	return event, nil
}

// HandleFrame consumes one server frame. A state_sync replaces the
// state wholesale; an event_broadcast goes through dedup + reducer;
// acks are for the UI layer and ignored here.
func (s *Store) HandleFrame(frame domain.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch f := frame.(type) {
	case *domain.StateSyncFrame:
		s.state = f.State.Clone()
		s.synced = true
		return nil

	case *domain.EventBroadcastFrame:
		event, err := f.Event()
		if err != nil {
			return err
		}
		if id := event.ID(); id != "" && s.seen.markSeen(id) {
			return nil
		}
		next, err := domain.Reduce(s.state, event)
		if err != nil {
			return err
		}
		s.state = next
		return nil

	default:
		return nil
	}
}

func (s *Store) State() domain.RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

func tagEvent(event domain.Event, id string) {
	switch ev := event.(type) {
	case *domain.ConnectEvent:
		ev.EventID = id
	case *domain.DisconnectEvent:
		ev.EventID = id
	case *domain.SelectCardEvent:
		ev.EventID = id
	case *domain.SetNameEvent:
		ev.EventID = id
	case *domain.ToggleCardsEvent:
		ev.EventID = id
	case *domain.ResetEvent:
		ev.EventID = id
	}
}

// dedupCache is a bounded FIFO set of recently seen event ids; the
// oldest id falls out first once capacity is reached.
type dedupCache struct {
	capacity int
	order    []string
	ids      map[string]struct{}
}

func newDedupCache(capacity int) *dedupCache {
	return &dedupCache{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
	}
}

// markSeen reports whether the id was already present, recording it if
// not.
func (c *dedupCache) markSeen(id string) bool {
	if _, ok := c.ids[id]; ok {
		return true
	}
	c.ids[id] = struct{}{}
	c.order = append(c.order, id)
	if len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.ids, oldest)
	}
	return false
}
