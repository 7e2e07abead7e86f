package notify

import (
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Frame is what a client receives for every event.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client is one websocket connection. Rooms holds the table channels the
// client joined; membership is lost on reconnect.
type Client struct {
	Send  chan []byte
	rooms map[string]bool
}

func NewClient(buffer int) *Client {
	return &Client{Send: make(chan []byte, buffer), rooms: make(map[string]bool)}
}

type joinMsg struct {
	client *Client
	room   string
}

type broadcastMsg struct {
	Room string // empty means every client
	Data []byte
}

// Hub fans events out to connected clients. Delivery is at most once per
// client: a client whose send buffer is full is dropped.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	join       chan joinMsg
	broadcast  chan broadcastMsg
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinMsg),
		broadcast:  make(chan broadcastMsg, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			h.drop(c)

		case j := <-h.join:
			if h.clients[j.client] {
				j.client.rooms[j.room] = true
			}

		case m := <-h.broadcast:
			for c := range h.clients {
				if m.Room != "" && !c.rooms[m.Room] {
					continue
				}
				select {
				case c.Send <- m.Data:
				default:
					log.WithField("room", m.Room).Warn("dropping slow notification client")
					h.drop(c)
				}
			}

		case <-h.done:
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.Send)
	}
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join subscribes c to a table channel. Any client may join any channel.
func (h *Hub) Join(c *Client, room string) {
	select {
	case h.join <- joinMsg{client: c, room: room}:
	case <-h.done:
	}
}

// BroadcastAll delivers to every connected client.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.publish("", event, payload)
}

// BroadcastToChannel delivers only to clients that joined channel.
func (h *Hub) BroadcastToChannel(channel, event string, payload any) {
	if channel == "" {
		return
	}
	h.publish(channel, event, payload)
}

func (h *Hub) publish(room, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("encode notification")
		return
	}
	h.deliver(room, data)
}

func (h *Hub) deliver(room string, data []byte) {
	select {
	case h.broadcast <- broadcastMsg{Room: room, Data: data}:
	case <-h.done:
	}
}
