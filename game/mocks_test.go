package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BasKiers/scrumpoker/domain"
)

// --- RoomStore ---

type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) EnsureRoom(ctx context.Context, roomID string) (domain.CardStatus, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(domain.CardStatus), args.Error(1)
}

func (m *MockRoomStore) GetParticipant(ctx context.Context, roomID, userID string) (domain.Participant, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Get(0).(domain.Participant), args.Error(1)
}

func (m *MockRoomStore) ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]domain.Participant), args.Error(1)
}

func (m *MockRoomStore) CreateParticipant(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *MockRoomStore) SetSelectedCard(ctx context.Context, roomID, userID, card string, at time.Time) error {
	args := m.Called(ctx, roomID, userID, card, at)
	return args.Error(0)
}

func (m *MockRoomStore) SetName(ctx context.Context, roomID, userID, name string, at time.Time) error {
	args := m.Called(ctx, roomID, userID, name, at)
	return args.Error(0)
}

func (m *MockRoomStore) SetCardStatus(ctx context.Context, roomID string, status domain.CardStatus) error {
	args := m.Called(ctx, roomID, status)
	return args.Error(0)
}

func (m *MockRoomStore) ResetCards(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockRoomStore) PruneParticipants(ctx context.Context, roomID string, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, roomID, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// --- Conn ---

// fakeConn is a channel-backed connection for hub-level tests where
// the pumps actually run.
type fakeConn struct {
	in        chan []byte
	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read() ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Write(data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.closed:
		return errors.New("connection closed")
	}
}

func (c *fakeConn) Ping() error { return nil }

func (c *fakeConn) Close(reason string) {
	c.closeOnce.Do(func() { close(c.closed) })
}
