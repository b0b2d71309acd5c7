package main

import (
	"context"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BasKiers/scrumpoker/config"
	"github.com/BasKiers/scrumpoker/game"
	"github.com/BasKiers/scrumpoker/migrations"
	"github.com/BasKiers/scrumpoker/storage"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if origin == "" || slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	if config.Envs.POSTGRES_URL == "" {
		log.Fatal().Msg("missing POSTGRES_URL")
	}
	if config.Envs.ALLOWED_ORIGINS == "" {
		log.Fatal().Msg("missing ALLOWED_ORIGINS")
	}
	allowedOrigins := strings.Split(config.Envs.ALLOWED_ORIGINS, ",")

	listenAddr := config.Envs.LISTEN_ADDR
	if listenAddr == "" {
		listenAddr = ":5000"
	}
	if config.Envs.GIN_MODE != "" {
		gin.SetMode(config.Envs.GIN_MODE)
	}

	if err := migrations.Migrate(config.Envs.POSTGRES_URL); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	pgRepo, err := storage.NewPostgresRepo(context.Background(), config.Envs.POSTGRES_URL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres pool setup failed")
	}
	defer pgRepo.Close()

	hub := game.NewHub(pgRepo, log.Logger)
	hubStarted := make(chan struct{})
	go hub.Run(hubStarted)
	<-hubStarted
	defer hub.Stop()

	gameHandler := game.NewHandler(hub, game.NewIdGen(), log.Logger)

	r := CreateServer(allowedOrigins)
	{
		roomGroup := r.Group("/room")
		roomGroup.GET("/create", gameHandler.CreateRoomHandler)
		roomGroup.GET("/:roomid/websocket", gameHandler.RoomWebsocketHandler)
	}

	log.Info().Str("addr", listenAddr).Msg("listening")
	if err := r.Run(listenAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
