package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/middleware"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/realtime"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/utils"
)

// RealtimeHandler pushes committed workflow events to connected users.
type RealtimeHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
	Log       *zap.Logger
}

// Upgrade authenticates before the websocket handshake; browsers cannot
// set headers on a websocket, so the token comes from the cookie or ?token=.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	tokenStr := c.Cookies(middleware.CookieName)
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}
	token, err := utils.ParseJWT(h.JWTSecret, tokenStr)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	claims, okClaims := token.Claims.(*utils.Claims)
	if !okClaims {
		return fiber.ErrUnauthorized
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	c.Locals("userId", uid)
	return c.Next()
}

func (h *RealtimeHandler) Events(c *websocket.Conn) {
	uid, _ := c.Locals("userId").(uuid.UUID)

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: uid,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer h.Hub.UnregisterClient(client)

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Log.Debug("websocket write failed", zap.String("user_id", uid.String()), zap.Error(err))
				return
			}
		}
	}()

	// Reads only keep the connection alive; clients send pongs.
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			h.Log.Debug("websocket closed", zap.String("user_id", uid.String()), zap.Error(err))
			return
		}
	}
}
