// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
)

type Client struct {
	ID     string
	UserID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	rdb *redis.Client
	log *zap.Logger
}

// NewHub: rdb may be nil, in which case events only reach sockets connected
// to this instance.
func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		log:        log,
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Notify implements notify.Notifier: a toast for each participant. With
// Redis the event goes through pub/sub so sockets on every instance get it.
func (h *Hub) Notify(ctx context.Context, ev notify.Event) {
	msg := map[string]interface{}{
		"type":  "workflow_event",
		"event": ev,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal realtime payload", zap.Error(err))
		return
	}
	for _, uid := range ev.Recipients {
		if h.rdb != nil {
			err := h.rdb.Publish(ctx, channelPrefix+uid.String(), payload).Err()
			if err == nil {
				continue
			}
			h.log.Warn("redis publish failed, delivering locally", zap.String("user_id", uid.String()), zap.Error(err))
		}
		h.sendRaw(uid, payload)
	}
}

const channelPrefix = "notifications:"

func (h *Hub) sendRaw(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Send <- payload:
			default:
				// slow reader, drop rather than block the workflow
			}
		}
	}
}

// subscribe forwards events published by any instance to local sockets.
func (h *Hub) subscribe(ctx context.Context) {
	sub := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			uid, err := uuid.Parse(strings.TrimPrefix(m.Channel, channelPrefix))
			if err != nil {
				continue
			}
			h.sendRaw(uid, []byte(m.Payload))
		}
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribe(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("socket registered", zap.String("client_id", client.ID), zap.String("user_id", client.UserID.String()))

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
				h.log.Debug("socket unregistered", zap.String("client_id", client.ID))
			}
			h.mu.Unlock()
		}
	}
}
