/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

This file contains HandleWebSocket, which rate limits, upgrades the connection, and
starts the client pumps. Room membership is established afterwards by the client's
first join event, not at upgrade time.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"liargame/internal/app/game"
	"liargame/internal/pkg/errs"
	"liargame/internal/pkg/limiter"
	"liargame/internal/pkg/logx"
	"liargame/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := game.NewClient(deps.Registry, conn)

		logx.Info("WebSocket connection established", "player_id", client.PlayerID())

		go client.WritePump()

		client.ReadPump()
	}
}
