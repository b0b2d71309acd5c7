package domain

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventConnect     EventType = "connect"
	EventDisconnect  EventType = "disconnect"
	EventSelectCard  EventType = "select_card"
	EventSetName     EventType = "set_name"
	EventToggleCards EventType = "toggle_cards"
	EventReset       EventType = "reset"
)

// Event is the closed set of room mutations. Every variant optionally
// carries an eventId so receivers can suppress duplicate delivery.
type Event interface {
	Kind() EventType
	ID() string
}

type ConnectEvent struct {
	Type               EventType `json:"type"`
	EventID            string    `json:"eventId,omitempty"`
	UserID             string    `json:"userId"`
	Name               string    `json:"name,omitempty"`
	SelectedCard       string    `json:"selectedCard,omitempty"`
	LastEventTimestamp int64     `json:"lastEventTimestamp,omitempty"`
}

type DisconnectEvent struct {
	Type    EventType `json:"type"`
	EventID string    `json:"eventId,omitempty"`
	UserID  string    `json:"userId"`
}

type SelectCardEvent struct {
	Type      EventType `json:"type"`
	EventID   string    `json:"eventId,omitempty"`
	UserID    string    `json:"userId"`
	CardValue string    `json:"cardValue"`
}

type SetNameEvent struct {
	Type    EventType `json:"type"`
	EventID string    `json:"eventId,omitempty"`
	UserID  string    `json:"userId"`
	Name    string    `json:"name"`
}

type ToggleCardsEvent struct {
	Type    EventType  `json:"type"`
	EventID string     `json:"eventId,omitempty"`
	Value   CardStatus `json:"value"`
}

type ResetEvent struct {
	Type    EventType `json:"type"`
	EventID string    `json:"eventId,omitempty"`
}

func NewConnectEvent(userID, name string) *ConnectEvent {
	return &ConnectEvent{Type: EventConnect, UserID: userID, Name: name}
}

func NewDisconnectEvent(userID string) *DisconnectEvent {
	return &DisconnectEvent{Type: EventDisconnect, UserID: userID}
}

func NewSelectCardEvent(userID, cardValue string) *SelectCardEvent {
	return &SelectCardEvent{Type: EventSelectCard, UserID: userID, CardValue: cardValue}
}

func NewSetNameEvent(userID, name string) *SetNameEvent {
	return &SetNameEvent{Type: EventSetName, UserID: userID, Name: name}
}

func NewToggleCardsEvent(value CardStatus) *ToggleCardsEvent {
	return &ToggleCardsEvent{Type: EventToggleCards, Value: value}
}

func NewResetEvent() *ResetEvent {
	return &ResetEvent{Type: EventReset}
}

func (e *ConnectEvent) Kind() EventType { return EventConnect }
func (e *ConnectEvent) ID() string      { return e.EventID }

func (e *DisconnectEvent) Kind() EventType { return EventDisconnect }
func (e *DisconnectEvent) ID() string      { return e.EventID }

func (e *SelectCardEvent) Kind() EventType { return EventSelectCard }
func (e *SelectCardEvent) ID() string      { return e.EventID }

func (e *SetNameEvent) Kind() EventType { return EventSetName }
func (e *SetNameEvent) ID() string      { return e.EventID }

func (e *ToggleCardsEvent) Kind() EventType { return EventToggleCards }
func (e *ToggleCardsEvent) ID() string      { return e.EventID }

func (e *ResetEvent) Kind() EventType { return EventReset }
func (e *ResetEvent) ID() string      { return e.EventID }

type eventEnvelope struct {
	Type EventType `json:"type"`
}

// ParseEvent decodes and validates a single inbound JSON frame. Errors
// wrap ErrInvalidEvent (schema violations) or ErrUnknownEventType so
// callers can map them to an error response without inspecting text.
func ParseEvent(data []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	switch envelope.Type {
	case EventConnect:
		ev := &ConnectEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		if ev.UserID == "" {
			return nil, fmt.Errorf("%w: connect requires userId", ErrInvalidEvent)
		}
		return ev, nil

	case EventDisconnect:
		ev := &DisconnectEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		if ev.UserID == "" {
			return nil, fmt.Errorf("%w: disconnect requires userId", ErrInvalidEvent)
		}
		return ev, nil

	case EventSelectCard:
		ev := &SelectCardEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		if ev.UserID == "" || ev.CardValue == "" {
			return nil, fmt.Errorf("%w: select_card requires userId and cardValue", ErrInvalidEvent)
		}
		return ev, nil

	case EventSetName:
		ev := &SetNameEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		if ev.UserID == "" || ev.Name == "" {
			return nil, fmt.Errorf("%w: set_name requires userId and name", ErrInvalidEvent)
		}
		return ev, nil

	case EventToggleCards:
		ev := &ToggleCardsEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		if ev.Value != CardsHidden && ev.Value != CardsRevealed {
			return nil, fmt.Errorf("%w: toggle_cards value must be hidden or revealed", ErrInvalidEvent)
		}
		return ev, nil

	case EventReset:
		ev := &ResetEvent{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, envelope.Type)
	}
}
