package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BasKiers/scrumpoker/domain"
)

var (
	ErrTransportClosed  = errors.New("transport-closed")
	ErrRetriesExhausted = errors.New("reconnect-retries-exhausted")
)

type TransportState int

const (
	StateDisconnected TransportState = iota
	StateConnecting
	StateOpen
)

func (s TransportState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// wireConn is the slice of *websocket.Conn the transport needs;
// narrowed so tests can stand in for the network.
type wireConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type dialFunc func(url string) (wireConn, error)

type Options struct {
	// Backoff schedule: delay for reconnect attempt n is
	// BaseDelay * 2^(n-1), capped at MaxDelay. After MaxAttempts
	// failed attempts OnTerminal fires and no further attempt is made.
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	// QueueTTL bounds how long an event sent while disconnected stays
	// eligible for a flush on reconnect.
	QueueTTL time.Duration

	OnFrame       func(domain.Frame)
	OnError       func(error)
	OnTerminal    func(error)
	OnStateChange func(TransportState)
}

type queuedEvent struct {
	data       []byte
	enqueuedAt time.Time
}

// Transport is a reconnecting websocket connection with an outbound
// queue. Every dial gets a generation number; callbacks from a socket
// that is no longer the current generation are ignored, so a
// superseded connection can never corrupt transport state.
type Transport struct {
	url  string
	dial dialFunc
	opts Options

	mu             sync.Mutex
	state          TransportState
	conn           wireConn
	generation     uint64
	attempts       int
	queue          []queuedEvent
	reconnectTimer *time.Timer
	closed         bool

	now func() time.Time
}

func NewTransport(url string, opts Options) *Transport {
	return newTransport(url, gorillaDial, opts)
}

func newTransport(url string, dial dialFunc, opts Options) *Transport {
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = time.Second * 10
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 5
	}
	if opts.QueueTTL == 0 {
		opts.QueueTTL = time.Second * 30
	}
	return &Transport{
		url:   url,
		dial:  dial,
		opts:  opts,
		state: StateDisconnected,
		now:   time.Now,
	}
}

func gorillaDial(url string) (wireConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect starts dialing unless a connection attempt is already in
// progress or the transport has been closed for good.
func (t *Transport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.state != StateDisconnected {
		return nil
	}
	t.startDialLocked()
	return nil
}

// Send writes the event if the connection is open, otherwise queues it
// with a timestamp and kicks off a reconnect.
func (t *Transport) Send(event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	if t.state == StateOpen && t.conn != nil {
		return t.conn.WriteMessage(websocket.TextMessage, data)
	}

	t.queue = append(t.queue, queuedEvent{data: data, enqueuedAt: t.now()})
	if t.state == StateDisconnected {
		t.startDialLocked()
	}
	return nil
}

// Close tears the transport down deliberately: the reconnect timer is
// cancelled and no callback fires afterwards.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.generation++
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.state = StateDisconnected
}

func (t *Transport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) startDialLocked() {
	t.generation++
	generation := t.generation
	t.setStateLocked(StateConnecting)
	go t.runDial(generation)
}

func (t *Transport) runDial(generation uint64) {
	conn, err := t.dial(t.url)

	t.mu.Lock()
	if t.closed || generation != t.generation {
		t.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		t.scheduleReconnectLocked()
		t.mu.Unlock()
		return
	}

	t.conn = conn
	t.attempts = 0
	t.setStateLocked(StateOpen)
	t.flushQueueLocked()
	t.mu.Unlock()

	go t.readLoop(generation, conn)
}

func (t *Transport) readLoop(generation uint64, conn wireConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if t.closed || generation != t.generation {
				t.mu.Unlock()
				return
			}
			t.conn = nil
			t.scheduleReconnectLocked()
			t.mu.Unlock()
			return
		}

		frame, err := domain.ParseFrame(data)
		if err != nil {
			if t.opts.OnError != nil {
				t.opts.OnError(err)
			}
			continue
		}
		if t.opts.OnFrame != nil {
			t.opts.OnFrame(frame)
		}
	}
}

func (t *Transport) scheduleReconnectLocked() {
	t.attempts++
	if t.attempts > t.opts.MaxAttempts {
		t.setStateLocked(StateDisconnected)
		if t.opts.OnTerminal != nil {
			t.opts.OnTerminal(ErrRetriesExhausted)
		}
		return
	}

	delay := backoffDelay(t.attempts, t.opts.BaseDelay, t.opts.MaxDelay)
	t.setStateLocked(StateConnecting)
	t.reconnectTimer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			return
		}
		t.generation++
		generation := t.generation
		go t.runDial(generation)
	})
}

func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base << (attempt - 1)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// flushQueueLocked replays queued events in order, dropping the ones
// whose intent has gone stale. A write failure keeps the failed entry
// and everything behind it queued for the next reconnect.
func (t *Transport) flushQueueLocked() {
	cutoff := t.now().Add(-t.opts.QueueTTL)
	queue := t.queue
	t.queue = nil

	for i, item := range queue {
		if item.enqueuedAt.Before(cutoff) {
			continue
		}
		if err := t.conn.WriteMessage(websocket.TextMessage, item.data); err != nil {
			t.queue = queue[i:]
			if t.opts.OnError != nil {
				t.opts.OnError(err)
			}
			return
		}
	}
}

func (t *Transport) setStateLocked(state TransportState) {
	if t.state == state {
		return
	}
	t.state = state
	if t.opts.OnStateChange != nil {
		t.opts.OnStateChange(state)
	}
}
