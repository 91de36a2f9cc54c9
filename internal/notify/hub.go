package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// Hub routes events from Redis to the websocket clients on this server.
// Only Run touches the clients map. done is closed once Run has returned.
type Hub struct {
	clients    map[string]map[*Client]bool // device token -> clients
	broadcast  chan Envelope               // From Redis -> Clients
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	redis      *redis.Client
	channel    string
}

func NewHub(redisClient *redis.Client, channel string) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan Envelope),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		redis:      redisClient,
		channel:    channel,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					h.remove(client)
				}
			}
			return

		case client := <-h.Register:
			if h.clients[client.Token] == nil {
				h.clients[client.Token] = make(map[*Client]bool)
			}
			h.clients[client.Token][client] = true

		case client := <-h.Unregister:
			h.remove(client)

		case env := <-h.broadcast:
			targets := h.clients[env.Token]
			if len(targets) == 0 {
				continue
			}
			payload, err := json.Marshal(env.Event)
			if err != nil {
				log.Warn("marshal event", "err", err, "kind", env.Event.Kind)
				continue
			}
			for client := range targets {
				select {
				case client.Send <- payload:
				default:
					// Slow consumer; drop it rather than stall every device.
					h.remove(client)
				}
			}
		}
	}
}

// register hands client to Run. It reports false once the hub has stopped.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	set := h.clients[client.Token]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.Token)
	}
}

// SubscribeToRedis confirms the subscription, then forwards envelopes to Run
// until ctx is cancelled.
func (h *Hub) SubscribeToRedis(ctx context.Context) error {
	pubsub := h.redis.Subscribe(ctx, h.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", h.channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Warn("dropping malformed envelope", "err", err)
					continue
				}
				select {
				case h.broadcast <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return nil
}
