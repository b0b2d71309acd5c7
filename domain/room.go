package domain

type CardStatus string

const (
	CardsHidden   CardStatus = "hidden"
	CardsRevealed CardStatus = "revealed"
)

// CardValues is the deck offered to every participant. "?" is a valid
// vote and counts towards auto-reveal like any other card.
var CardValues = []string{"?", "1", "2", "3", "5", "8", "13", "20"}

type Participant struct {
	UserID             string `json:"userId"`
	Name               string `json:"name,omitempty"`
	SelectedCard       string `json:"selectedCard,omitempty"`
	LastEventTimestamp int64  `json:"lastEventTimestamp,omitempty"`
}

type RoomState struct {
	RoomID       string                 `json:"roomId"`
	Participants map[string]Participant `json:"participants"`
	CardStatus   CardStatus             `json:"card_status"`
}

func NewRoomState(roomID string) RoomState {
	return RoomState{
		RoomID:       roomID,
		Participants: map[string]Participant{},
		CardStatus:   CardsHidden,
	}
}

// Clone returns a deep copy so reducers can apply-to-copy without
// touching the caller's state.
func (s RoomState) Clone() RoomState {
	participants := make(map[string]Participant, len(s.Participants))
	for id, p := range s.Participants {
		participants[id] = p
	}
	return RoomState{
		RoomID:       s.RoomID,
		Participants: participants,
		CardStatus:   s.CardStatus,
	}
}
