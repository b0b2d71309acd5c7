package config

import "os"

var Envs = struct {
	POSTGRES_URL    string
	ALLOWED_ORIGINS string
	LISTEN_ADDR     string
	GIN_MODE        string
}{
	POSTGRES_URL:    os.Getenv("POSTGRES_URL"),
	ALLOWED_ORIGINS: os.Getenv("ALLOWED_ORIGINS"),
	LISTEN_ADDR:     os.Getenv("LISTEN_ADDR"),
	GIN_MODE:        os.Getenv("GIN_MODE"),
}
