package domain

import "errors"

var (
	UnexpectedDatabaseError = errors.New("database-error")
	ErrRoomNotFound         = errors.New("room-not-found")
	ErrParticipantNotFound  = errors.New("participant-not-found")
)

var (
	ErrInvalidEvent       = errors.New("invalid-event")
	ErrUnknownEventType   = errors.New("unknown-event-type")
	ErrUnknownParticipant = errors.New("unknown-participant")
	ErrMalformedFrame     = errors.New("malformed-frame")
)
