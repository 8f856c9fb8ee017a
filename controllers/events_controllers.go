package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/grocery-store/hub"
	"github.com/yeremiapane/grocery-store/middlewares"
)

type EventsController struct {
	Hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewEventsController accepts upgrades from the given origins ("*" allows any).
// Requests without an Origin header are not from browsers and are allowed.
func NewEventsController(h *hub.Hub, allowedOrigins []string) *EventsController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &EventsController{
		Hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Stream -> websocket endpoint for staff screens
func (ec *EventsController) Stream(c *gin.Context) {
	ws, err := ec.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	ec.Hub.Register(ws, c.GetString(middlewares.ContextRole))

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	ec.Hub.Unregister(ws)
}
