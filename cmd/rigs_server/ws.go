package main

import (
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/kdudkov/rigs/internal/wshandler"
)

func getWsUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}

		return fiber.ErrUpgradeRequired
	}
}

// getWsHandler streams events, optionally limited with ?types=vote,review.
// With ?since=<seq> kept events newer than seq are sent first.
func getWsHandler(app *App) fiber.Handler {
	return websocket.New(func(ws *websocket.Conn) {
		name := uuid.NewString()

		var types []string
		if t := ws.Query("types"); t != "" {
			types = strings.Split(t, ",")
		}

		h := wshandler.NewHandler(app.logger, name, ws, types...)

		app.logger.Debug("ws listener connected")
		wsClientsMetric.Inc()

		if since, err := strconv.ParseUint(ws.Query("since"), 10, 64); err == nil {
			for _, e := range app.bus.Since(since, types...) {
				h.SendEvent(e)
			}
		}

		app.bus.Subscribe(name, h.SendEvent)
		h.Listen()
		app.bus.Unsubscribe(name)
		wsClientsMetric.Dec()
		app.logger.Debug("ws listener disconnected")
	})
}
