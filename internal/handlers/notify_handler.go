package handlers

import (
	"strings"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/automate-app/automate_be/internal/realtime"
	"github.com/automate-app/automate_be/internal/utils"
)

// NotifyHandler owns the lifecycle-notification websocket. Browsers
// cannot set headers on the upgrade request, so the JWT rides in a
// query parameter instead of the cookie.
type NotifyHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
}

func NewNotifyHandler(hub *realtime.Hub, jwtSecret string) *NotifyHandler {
	return &NotifyHandler{Hub: hub, JWTSecret: jwtSecret}
}

func (h *NotifyHandler) WebSocketHandler(c *websocket.Conn) {
	token := c.Query("token")
	if token == "" {
		logrus.Warn("ws: token parameter missing")
		c.Close()
		return
	}

	claims, err := utils.ParseJWT(h.JWTSecret, token)
	if err != nil {
		logrus.WithError(err).Warn("ws: invalid token")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(claims.UserID)
	if err != nil {
		logrus.WithError(err).Warn("ws: invalid user id in token")
		c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Role:   strings.ToLower(claims.Role),
		Conn:   &realtime.WebSocketConn{Conn: c},
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		logrus.WithField("user", userUUID).Debug("ws: disconnected")
	}()

	// hub -> socket
	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				logrus.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	// socket -> nothing; reads keep the connection alive and surface
	// close frames
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if msgType, ok := payload["type"].(string); ok && msgType == "pong" {
			continue
		}
	}
}
