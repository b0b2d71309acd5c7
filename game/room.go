package game

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/BasKiers/scrumpoker/domain"
)

const (
	roomInboxSize        = 1024
	roomJoinQueueSize    = 32
	roomClosedQueueSize  = 64
	defaultStoreTimeout  = time.Second * 5
	participantRetention = time.Hour * 24 * 30
)

type frameEnvelope struct {
	data []byte
	from *session
}

type joinRequest struct {
	sess *session
	done chan error
}

type evictionProbe struct {
	seq   uint64
	reply chan<- evictionProbeReply
}

type evictionProbeReply struct {
	roomID string
	seq    uint64
	idle   bool
}

// Room is the authoritative coordinator for one room key. A single
// goroutine (Run) owns the state and processes joins, frames, closes
// and eviction probes strictly one at a time, which gives linearizable
// per-room ordering without locks.
type Room struct {
	id       string
	state    domain.RoomState
	store    RoomStore
	registry *sessionRegistry

	inbox  chan frameEnvelope
	joins  chan joinRequest
	closed chan *session
	probes chan evictionProbe
	stop   chan struct{}
	done   chan struct{}

	// persist runs storage writes off the event path. Tests swap it
	// for a synchronous runner.
	persist      func(fn func())
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewRoom(id string, store RoomStore, log zerolog.Logger) *Room {
	r := &Room{
		id:           id,
		state:        domain.NewRoomState(id),
		store:        store,
		registry:     newSessionRegistry(),
		inbox:        make(chan frameEnvelope, roomInboxSize),
		joins:        make(chan joinRequest, roomJoinQueueSize),
		closed:       make(chan *session, roomClosedQueueSize),
		probes:       make(chan evictionProbe, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		storeTimeout: defaultStoreTimeout,
		log:          log.With().Str("room_id", id).Logger(),
	}
	r.persist = func(fn func()) { go fn() }
	return r
}

// Run is the room actor loop. Activation happens first, so every
// event observes reconstructed durable state.
func (r *Room) Run(started chan<- struct{}) {
	defer close(r.done)

	if err := r.activate(); err != nil {
		r.log.Error().Err(err).Msg("room activation failed, serving from empty state")
	}
	close(started)

	for {
		select {
		case jr := <-r.joins:
			jr.done <- r.handleJoin(jr.sess)
		case env := <-r.inbox:
			r.handleFrame(env)
		case s := <-r.closed:
			r.handleClosed(s)
		case probe := <-r.probes:
			// A join already sitting in the queue counts as occupancy:
			// reporting idle here would let the hub evict a room that
			// is about to hand out a state_sync. Joins forwarded after
			// this reply bump the hub-side sequence and fail its guard.
			idle := r.registry.empty() && len(r.joins) == 0
			probe.reply <- evictionProbeReply{roomID: r.id, seq: probe.seq, idle: idle}
		case <-r.stop:
			r.registry.each(func(s *session) { s.close() })
			return
		}
	}
}

// activate reconstructs in-memory state from durable storage plus the
// live connection set. It is idempotent with respect to persisted
// data, so eviction and reactivation are free to happen at any idle
// point.
func (r *Room) activate() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.storeTimeout)
	defer cancel()

	status, err := r.store.EnsureRoom(ctx, r.id)
	if err != nil {
		return err
	}
	r.state.CardStatus = status

	if pruned, err := r.store.PruneParticipants(ctx, r.id, time.Now().Add(-participantRetention)); err != nil {
		r.log.Error().Err(err).Msg("participant pruning failed")
	} else if pruned > 0 {
		r.log.Info().Int64("pruned", pruned).Msg("garbage-collected stale participant rows")
	}

	participants, err := r.store.ListParticipants(ctx, r.id)
	if err != nil {
		return err
	}

	// Persisted rows for disconnected users are a durable cache for
	// rejoin, not part of the live membership view.
	connected := r.registry.connectedUserIDs()
	for _, p := range participants {
		if _, ok := connected[p.UserID]; !ok {
			continue
		}
		r.state.Participants[p.UserID] = p
	}
	return nil
}

// handleJoin runs the connection handshake: recover any persisted
// name/vote for this user, apply a synthesized connect, announce it to
// the rest of the room and hand the newcomer a full snapshot.
func (r *Room) handleJoin(sess *session) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.storeTimeout)
	defer cancel()

	p, err := r.store.GetParticipant(ctx, r.id, sess.userID)
	switch {
	case errors.Is(err, domain.ErrParticipantNotFound):
		p = domain.Participant{UserID: sess.userID}
		if err := r.store.CreateParticipant(ctx, r.id, sess.userID); err != nil {
			r.log.Error().Err(err).Str("user_id", sess.userID).Msg("participant row insert failed")
		}
	case err != nil:
		r.log.Error().Err(err).Str("user_id", sess.userID).Msg("participant lookup failed, joining without recovered state")
		p = domain.Participant{UserID: sess.userID}
	}

	ev := &domain.ConnectEvent{
		Type:         domain.EventConnect,
		UserID:       sess.userID,
		Name:         p.Name,
		SelectedCard: p.SelectedCard,
	}
	next, err := domain.Reduce(r.state, ev)
	if err != nil {
		return err
	}
	r.state = next

	// Announce before registering so the newcomer is excluded.
	r.broadcast(ev, nil)

	sess.inbox = r.inbox
	sess.closedc = r.closed
	sess.roomDone = r.done
	r.registry.add(sess)

	sync, err := domain.MarshalStateSync(r.state)
	if err != nil {
		return err
	}
	sess.send(sync)
	return nil
}

func (r *Room) handleFrame(env frameEnvelope) {
	ev, err := domain.ParseEvent(env.data)
	if err != nil {
		r.sendError(env.from, "", err)
		return
	}

	next, err := domain.Reduce(r.state, ev)
	if err != nil {
		r.sendError(env.from, ev.Kind(), err)
		return
	}
	r.state = next

	r.persistEvent(ev)
	r.broadcast(ev, env.from)
	r.maybeAutoReveal(ev)

	if ack, err := domain.MarshalSuccess(ev.Kind(), ev.ID()); err == nil {
		env.from.send(ack)
	}
}

// maybeAutoReveal fires at most once per hidden-to-revealed edge: the
// synthesized toggle flips card_status, so a second accepted
// select_card can no longer satisfy the guard.
func (r *Room) maybeAutoReveal(ev domain.Event) {
	if _, ok := ev.(*domain.SelectCardEvent); !ok {
		return
	}
	if r.state.CardStatus != domain.CardsHidden || !domain.AllNamedSelected(r.state) {
		return
	}

	reveal := domain.NewToggleCardsEvent(domain.CardsRevealed)
	next, err := domain.Reduce(r.state, reveal)
	if err != nil {
		r.log.Error().Err(err).Msg("auto-reveal reduce failed")
		return
	}
	r.state = next
	r.persistEvent(reveal)
	r.broadcast(reveal, nil)
}

func (r *Room) handleClosed(s *session) {
	s.close()
	last := r.registry.remove(s)
	if !last {
		return
	}

	ev := domain.NewDisconnectEvent(s.userID)
	next, err := domain.Reduce(r.state, ev)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", s.userID).Msg("disconnect reduce failed")
		return
	}
	r.state = next
	// The persisted row stays behind as the rejoin cache; activation
	// prunes it once it goes stale.
	r.broadcast(ev, nil)
}

// broadcast fans an accepted event out to every open session in the
// room except the originator; the originator already applied it
// optimistically and gets a success ack instead. Synthesized events
// pass a nil origin and reach everyone.
func (r *Room) broadcast(ev domain.Event, origin *session) {
	data, err := domain.MarshalEventBroadcast(ev)
	if err != nil {
		r.log.Error().Err(err).Msg("broadcast marshal failed")
		return
	}
	r.registry.each(func(s *session) {
		if s != origin {
			s.send(data)
		}
	})
}

func (r *Room) sendError(sess *session, eventType domain.EventType, cause error) {
	code := ""
	switch {
	case errors.Is(cause, domain.ErrInvalidEvent):
		code = "invalid-event"
	case errors.Is(cause, domain.ErrUnknownEventType):
		code = "unknown-event-type"
	case errors.Is(cause, domain.ErrUnknownParticipant):
		code = "unknown-participant"
	}
	if frame, err := domain.MarshalError(eventType, cause.Error(), code); err == nil {
		sess.send(frame)
	}
}

// persistEvent issues the storage mutation for an accepted event
// without blocking the broadcast/ack path. Failures are logged and
// never surfaced: latency is traded for durability here on purpose.
func (r *Room) persistEvent(ev domain.Event) {
	var write func(ctx context.Context) error

	switch e := ev.(type) {
	case *domain.SelectCardEvent:
		write = func(ctx context.Context) error {
			return r.store.SetSelectedCard(ctx, r.id, e.UserID, e.CardValue, time.Now())
		}
	case *domain.SetNameEvent:
		write = func(ctx context.Context) error {
			return r.store.SetName(ctx, r.id, e.UserID, e.Name, time.Now())
		}
	case *domain.ToggleCardsEvent:
		write = func(ctx context.Context) error {
			return r.store.SetCardStatus(ctx, r.id, e.Value)
		}
	case *domain.ResetEvent:
		write = func(ctx context.Context) error {
			return r.store.ResetCards(ctx, r.id)
		}
	default:
		// connect rows are written during the handshake; disconnect
		// keeps the row for rejoin.
		return
	}

	kind := ev.Kind()
	r.persist(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.storeTimeout)
		defer cancel()
		if err := write(ctx); err != nil {
			r.log.Error().Err(err).Str("event_type", string(kind)).Msg("persistence write failed")
		}
	})
}

// State returns a copy for tests and diagnostics; the live map never
// leaves the actor.
func (r *Room) State() domain.RoomState {
	return r.state.Clone()
}
