package game

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BasKiers/scrumpoker/domain"
)

const (
	sessionOutboxSize = 256
	pingInterval      = time.Second * 30
)

// session is one websocket connection tagged with a userId. A user can
// hold several sessions at once (multiple tabs). The read pump feeds
// the owning room's inbox; the write pump drains the outbox.
type session struct {
	userID string
	conn   Conn

	outbox  chan []byte
	limiter *rate.Limiter

	// Set by the room during the join handshake, read by the pumps
	// afterwards. The join reply channel orders the two.
	inbox    chan<- frameEnvelope
	closedc  chan<- *session
	roomDone <-chan struct{}

	quit      chan struct{}
	closeOnce sync.Once
}

func newSession(userID string, conn Conn) *session {
	return &session{
		userID:  userID,
		conn:    conn,
		outbox:  make(chan []byte, sessionOutboxSize),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		quit:    make(chan struct{}),
	}
}

// send enqueues without blocking the room actor. A consumer that
// cannot keep up loses frames and stays stale until it reconnects and
// receives a fresh state_sync. The outbox is never closed, so a late
// send after close is a no-op rather than a panic.
func (s *session) send(data []byte) {
	select {
	case s.outbox <- data:
	default:
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

func (s *session) readPump() {
	for {
		data, err := s.conn.Read()
		if err != nil {
			break
		}

		if !s.limiter.Allow() {
			if frame, err := domain.MarshalError("", "rate limit exceeded", "rate-limited"); err == nil {
				s.send(frame)
			}
			continue
		}

		select {
		case s.inbox <- frameEnvelope{data: data, from: s}:
		case <-s.roomDone:
			return
		}
	}
	select {
	case s.closedc <- s:
	case <-s.roomDone:
	}
}

func (s *session) writePump() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

loop:
	for {
		select {
		case <-s.quit:
			break loop
		case data := <-s.outbox:
			if err := s.conn.Write(data); err != nil {
				break loop
			}
		case <-ping.C:
			if err := s.conn.Ping(); err != nil {
				break loop
			}
		}
	}
	s.conn.Close("")
}
