package game

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultIdleProbeInterval = time.Minute

type hubJoinRequest struct {
	roomID string
	sess   *session
	done   chan error
}

// Hub owns the room table. It lazily activates a room actor on first
// use and evicts idle ones, freeing the in-memory worker while the
// durable rows stay behind. Like the rooms themselves it is a single
// goroutine; the per-room join sequence numbers close the race between
// an eviction decision and a join forwarded in the meantime.
type Hub struct {
	store RoomStore

	joins        chan hubJoinRequest
	probeReplies chan evictionProbeReply
	stopc        chan struct{}

	rooms             map[string]*roomHandle
	idleProbeInterval time.Duration
	log               zerolog.Logger
}

type roomHandle struct {
	room *Room
	seq  uint64
}

func NewHub(store RoomStore, log zerolog.Logger) *Hub {
	return &Hub{
		store:             store,
		joins:             make(chan hubJoinRequest, 256),
		probeReplies:      make(chan evictionProbeReply, 256),
		stopc:             make(chan struct{}),
		rooms:             map[string]*roomHandle{},
		idleProbeInterval: defaultIdleProbeInterval,
		log:               log,
	}
}

// Join ties a fresh connection to its room: it activates the room if
// needed, runs the handshake, and only then starts the session pumps
// so the state_sync snapshot is the first frame on the wire.
func (h *Hub) Join(ctx context.Context, roomID, userID string, conn Conn) error {
	sess := newSession(userID, conn)
	req := hubJoinRequest{roomID: roomID, sess: sess, done: make(chan error, 1)}

	select {
	case h.joins <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	go sess.readPump()
	go sess.writePump()
	return nil
}

func (h *Hub) Stop() {
	close(h.stopc)
}

// Run is the hub actor loop.
func (h *Hub) Run(started chan<- struct{}) {
	ticker := time.NewTicker(h.idleProbeInterval)
	defer ticker.Stop()

	close(started)

	for {
		select {
		case req := <-h.joins:
			h.handleJoin(req)

		case <-ticker.C:
			h.probeIdleRooms()

		case reply := <-h.probeReplies:
			h.handleProbeReply(reply)

		case <-h.stopc:
			for _, handle := range h.rooms {
				close(handle.room.stop)
			}
			return
		}
	}
}

func (h *Hub) handleJoin(req hubJoinRequest) {
	handle, ok := h.rooms[req.roomID]
	if !ok {
		room := NewRoom(req.roomID, h.store, h.log)
		handle = &roomHandle{room: room}
		h.rooms[req.roomID] = handle

		started := make(chan struct{})
		go room.Run(started)
		h.log.Debug().Str("room_id", req.roomID).Msg("room activated")
	}

	handle.seq++
	select {
	case handle.room.joins <- joinRequest{sess: req.sess, done: req.done}:
	default:
		req.done <- ErrRoomBusy
	}
}

func (h *Hub) probeIdleRooms() {
	for _, handle := range h.rooms {
		probe := evictionProbe{seq: handle.seq, reply: h.probeReplies}
		select {
		case handle.room.probes <- probe:
		default:
			// Busy room; it is clearly not idle.
		}
	}
}

// handleProbeReply evicts a room only when it reported itself empty
// AND no join has been forwarded to it since the probe went out.
func (h *Hub) handleProbeReply(reply evictionProbeReply) {
	handle, ok := h.rooms[reply.roomID]
	if !ok || !reply.idle || reply.seq != handle.seq {
		return
	}
	delete(h.rooms, reply.roomID)
	close(handle.room.stop)
	h.log.Debug().Str("room_id", reply.roomID).Msg("idle room evicted")
}
