package domain

import "time"

// nowMillis is swapped out by tests that need stable timestamps.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// Reduce applies a single event to a room state and returns the next
// state. It never mutates its input: mutations happen on a copy, and
// on error the original state is handed back untouched. The same
// function runs authoritatively on the server and optimistically on
// clients, so it must stay free of I/O.
func Reduce(state RoomState, event Event) (RoomState, error) {
	switch ev := event.(type) {
	case *ConnectEvent:
		return reduceConnect(state, ev), nil

	case *DisconnectEvent:
		next := state.Clone()
		delete(next.Participants, ev.UserID)
		return next, nil

	case *SelectCardEvent:
		p, ok := state.Participants[ev.UserID]
		if !ok {
			// Unknown voter: drop silently, a connect may still be in flight.
			return state, nil
		}
		next := state.Clone()
		p.SelectedCard = ev.CardValue
		p.LastEventTimestamp = nowMillis()
		next.Participants[ev.UserID] = p
		return next, nil

	case *SetNameEvent:
		p, ok := state.Participants[ev.UserID]
		if !ok {
			return state, ErrUnknownParticipant
		}
		next := state.Clone()
		p.Name = ev.Name
		p.LastEventTimestamp = nowMillis()
		next.Participants[ev.UserID] = p
		return next, nil

	case *ToggleCardsEvent:
		next := state.Clone()
		next.CardStatus = ev.Value
		return next, nil

	case *ResetEvent:
		next := state.Clone()
		at := nowMillis()
		for id, p := range next.Participants {
			p.SelectedCard = ""
			p.LastEventTimestamp = at
			next.Participants[id] = p
		}
		next.CardStatus = CardsHidden
		return next, nil

	default:
		return state, ErrUnknownEventType
	}
}

func reduceConnect(state RoomState, ev *ConnectEvent) RoomState {
	next := state.Clone()
	p, existed := next.Participants[ev.UserID]
	if !existed {
		p = Participant{UserID: ev.UserID}
	}
	if ev.Name != "" {
		p.Name = ev.Name
	}
	// A rejoin keeps the vote already on the books; a fresh connect may
	// carry one recovered from storage.
	if p.SelectedCard == "" {
		p.SelectedCard = ev.SelectedCard
	}
	p.LastEventTimestamp = nowMillis()
	next.Participants[ev.UserID] = p
	return next
}

// AllNamedSelected reports whether the named (non-spectating)
// participants form a non-empty set that has voted to completion. It
// drives the hidden-to-revealed auto-reveal edge.
func AllNamedSelected(state RoomState) bool {
	named := 0
	for _, p := range state.Participants {
		if p.Name == "" {
			continue
		}
		named++
		if p.SelectedCard == "" {
			return false
		}
	}
	return named > 0
}
