package handler

import (
	"liargame/internal/app/game"
	"liargame/internal/configs"
)

type AppDeps struct {
	Registry *game.Registry
	Config   *configs.AppConfig
}
