package events

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

type Handler struct {
	hub *Hub
	log registry.Logger
}

func NewHandler(hub *Hub, log registry.Logger) *Handler {
	return &Handler{hub: hub, log: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws/events", h.HandleWebSocket)
	router.GET("/events/status", h.GetStatus)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the feed is public and read-only
		return true
	},
}

// HandleWebSocket godoc
// @Summary Subscribe to registry events
// @Description Upgrades to a websocket that streams committed registry events
// @Tags events
// @Param bike_id query int false "Only stream events for this bike"
// @Success 101
// @Failure 400 {object} response.APIResponse
// @Router /ws/events [get]
func (h *Handler) HandleWebSocket(c *gin.Context) {
	var bikeID registry.BikeID
	if raw := c.Query("bike_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid bike_id", nil)
			return
		}
		bikeID = registry.BikeID(id)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade error: %v", err)
		return
	}

	sub := h.hub.AddSubscriber(conn, bikeID)
	h.log.Debugf("subscriber %s connected (bike %d)", sub.ID, bikeID)

	go h.readLoop(sub)
	go h.writeLoop(sub)
}

// readLoop only watches for the peer going away; clients never send data.
func (h *Handler) readLoop(sub *Subscriber) {
	defer func() {
		h.hub.RemoveSubscriber(sub.ID)
		sub.Conn.Close()
		h.log.Debugf("subscriber %s disconnected", sub.ID)
	}()

	sub.Conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.Conn.SetPongHandler(func(string) error {
		sub.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warnf("websocket error for subscriber %s: %v", sub.ID, err)
			}
			return
		}
	}
}

func (h *Handler) writeLoop(sub *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sub.Done:
			sub.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			sub.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case e := <-sub.Send:
			sub.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.Conn.WriteJSON(e); err != nil {
				h.log.Warnf("write error for subscriber %s: %v", sub.ID, err)
				h.hub.RemoveSubscriber(sub.ID)
				return
			}

		case <-ticker.C:
			sub.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Warnf("ping error for subscriber %s: %v", sub.ID, err)
				h.hub.RemoveSubscriber(sub.ID)
				return
			}
		}
	}
}

// GetStatus godoc
// @Summary Event feed status
// @Description Returns the number of connected event subscribers
// @Tags events
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /events/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	response.SendAPIResponse(c, http.StatusOK, true, "event feed status", map[string]interface{}{
		"subscribers": h.hub.Count(),
		"dropped":     h.hub.Dropped(),
	})
}
