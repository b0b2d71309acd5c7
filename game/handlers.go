package game

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Handler struct {
	hub      *Hub
	idGen    UniqueIdGenerator
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(hub *Hub, idGen UniqueIdGenerator, log zerolog.Logger) *Handler {
	return &Handler{
		hub:   hub,
		idGen: idGen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are screened by the router middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// RoomWebsocketHandler upgrades GET /room/:roomid/websocket?userId=...
// into a room connection.
func (h *Handler) RoomWebsocketHandler(ctx *gin.Context) {
	if !websocket.IsWebSocketUpgrade(ctx.Request) {
		ctx.String(http.StatusUpgradeRequired, "expected websocket upgrade")
		return
	}

	userID := ctx.Query("userId")
	if userID == "" {
		ctx.String(http.StatusBadRequest, "missing userId")
		return
	}
	roomID := ctx.Param("roomid")

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("websocket upgrade failed")
		return
	}

	socket := NewWebsocketConnection(conn)
	if err := h.hub.Join(ctx.Request.Context(), roomID, userID, socket); err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("room join failed")
		socket.Close("join failed")
	}
}

// CreateRoomHandler mints an opaque room id. The client navigates to
// the room page and connects over the websocket route.
func (h *Handler) CreateRoomHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"roomId": h.idGen.Generate()})
}
