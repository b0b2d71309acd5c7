package domain

import (
	"encoding/json"
	"fmt"
)

type FrameType string

const (
	FrameStateSync      FrameType = "state_sync"
	FrameEventBroadcast FrameType = "event_broadcast"
	FrameSuccess        FrameType = "success"
	FrameError          FrameType = "error"
)

type StateSyncFrame struct {
	Type  FrameType `json:"type"`
	State RoomState `json:"state"`
}

type EventBroadcastFrame struct {
	Type    FrameType       `json:"type"`
	Message json.RawMessage `json:"message"`
}

type SuccessFrame struct {
	Type      FrameType `json:"type"`
	EventType EventType `json:"eventType"`
	EventID   string    `json:"eventId,omitempty"`
}

type ErrorFrame struct {
	Type      FrameType `json:"type"`
	EventType EventType `json:"eventType,omitempty"`
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
}

func MarshalStateSync(state RoomState) ([]byte, error) {
	return json.Marshal(StateSyncFrame{Type: FrameStateSync, State: state})
}

func MarshalEventBroadcast(event Event) ([]byte, error) {
	message, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventBroadcastFrame{Type: FrameEventBroadcast, Message: message})
}

func MarshalSuccess(eventType EventType, eventID string) ([]byte, error) {
	return json.Marshal(SuccessFrame{Type: FrameSuccess, EventType: eventType, EventID: eventID})
}

func MarshalError(eventType EventType, message, code string) ([]byte, error) {
	return json.Marshal(ErrorFrame{Type: FrameError, EventType: eventType, Error: message, Code: code})
}

// Frame is the decoded form of one server-to-client message.
type Frame interface {
	FrameKind() FrameType
}

func (f *StateSyncFrame) FrameKind() FrameType { return FrameStateSync }

func (f *EventBroadcastFrame) FrameKind() FrameType { return FrameEventBroadcast }

func (f *SuccessFrame) FrameKind() FrameType { return FrameSuccess }

func (f *ErrorFrame) FrameKind() FrameType { return FrameError }

// Event decodes the broadcast payload through the same validation path
// as inbound server frames.
func (f *EventBroadcastFrame) Event() (Event, error) {
	return ParseEvent(f.Message)
}

type frameEnvelope struct {
	Type FrameType `json:"type"`
}

// ParseFrame decodes a server-to-client message on the client side.
func ParseFrame(data []byte) (Frame, error) {
	var envelope frameEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	switch envelope.Type {
	case FrameStateSync:
		f := &StateSyncFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		return f, nil
	case FrameEventBroadcast:
		f := &EventBroadcastFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		return f, nil
	case FrameSuccess:
		f := &SuccessFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		return f, nil
	case FrameError:
		f := &ErrorFrame{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: unknown frame type %q", ErrMalformedFrame, envelope.Type)
	}
}
