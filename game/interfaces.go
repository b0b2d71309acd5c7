package game

import (
	"context"
	"time"

	"github.com/BasKiers/scrumpoker/domain"
)

// Conn is one live client connection. Implemented by the gorilla
// wrapper in production and by mocks in tests.
type Conn interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

// RoomStore is the durable side of a room. Writes issued on the event
// path are fire-and-forget; reads happen during activation and the
// connection handshake.
type RoomStore interface {
	EnsureRoom(ctx context.Context, roomID string) (domain.CardStatus, error)
	GetParticipant(ctx context.Context, roomID, userID string) (domain.Participant, error)
	ListParticipants(ctx context.Context, roomID string) ([]domain.Participant, error)
	CreateParticipant(ctx context.Context, roomID, userID string) error
	SetSelectedCard(ctx context.Context, roomID, userID, card string, at time.Time) error
	SetName(ctx context.Context, roomID, userID, name string, at time.Time) error
	SetCardStatus(ctx context.Context, roomID string, status domain.CardStatus) error
	ResetCards(ctx context.Context, roomID string) error
	PruneParticipants(ctx context.Context, roomID string, olderThan time.Time) (int64, error)
}

// UniqueIdGenerator mints opaque room ids.
type UniqueIdGenerator interface {
	Generate() string
}
