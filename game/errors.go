package game

import "errors"

var ErrRoomBusy = errors.New("room-busy")
