package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// searchProgressPayload is sent on /ws/search after each completed depth of
// an AI search.
type searchProgressPayload struct {
	GameID    string  `json:"game_id"`
	Player    int     `json:"player"`
	Depth     int     `json:"depth"`
	Move      Move    `json:"move"`
	Score     float64 `json:"score"`
	ElapsedMs int64   `json:"elapsed_ms"`
}

type SearchClient struct {
	hub  *SearchHub
	send chan []byte
}

type SearchHub struct {
	mu        sync.Mutex
	clients   map[*SearchClient]struct{}
	broadcast chan searchProgressPayload
}

func NewSearchHub() *SearchHub {
	return &SearchHub{
		clients:   make(map[*SearchClient]struct{}),
		broadcast: make(chan searchProgressPayload, 32),
	}
}

func (h *SearchHub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				client.sendJSON(wsMessage{Type: "search", Payload: mustMarshal(payload)})
			}
			h.mu.Unlock()
		}
	}
}

// Publish never blocks; progress is dropped when nobody listens or the
// queue is full.
func (h *SearchHub) Publish(payload searchProgressPayload) {
	if !h.HasClients() {
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

func (h *SearchHub) Register(c *SearchClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *SearchHub) Unregister(c *SearchClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *SearchHub) HasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (c *SearchClient) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func serveSearchWS(hub *SearchHub, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "backend").Err(err).Msg("search websocket upgrade failed")
		return
	}
	client := &SearchClient{hub: hub, send: make(chan []byte, 16)}
	hub.Register(client)

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			log.Debug().Str("component", "backend").Err(err).Msg("search websocket write failed")
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.Unregister(client)
			return
		}
	}
}

// progressPublisher adapts search depth reports into hub payloads. It runs
// on the search goroutine and must not take the controller lock.
func progressPublisher(hub *SearchHub) func(string, DepthReport) {
	return func(gameID string, report DepthReport) {
		hub.Publish(searchProgressPayload{
			GameID:    gameID,
			Player:    playerToInt(report.Player),
			Depth:     report.Depth,
			Move:      report.Move,
			Score:     report.Score,
			ElapsedMs: report.Elapsed.Milliseconds(),
		})
	}
}
