package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

const (
	feedSendBuffer   = 64
	feedWriteTimeout = 5 * time.Second
)

// Feed pushes applied transfers to websocket subscribers. Subscribers may
// pass ?inventory=<id> to receive only transfers touching that inventory.
// A subscriber that cannot keep up is disconnected.
type Feed struct {
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	inventory string
	out       chan []byte
}

func NewFeed(log logrus.FieldLogger) *Feed {
	return &Feed{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
	}
}

func (f *Feed) Publish(ev domain.TransferEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.log.WithError(err).Error("marshal transfer event")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		if c.inventory != "" && c.inventory != ev.SourceID && c.inventory != ev.TargetID {
			continue
		}
		select {
		case c.out <- data:
		default:
			f.removeLocked(c)
		}
	}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.WithError(err).Debug("feed upgrade failed")
		return
	}

	c := &feedClient{inventory: r.URL.Query().Get("inventory"), out: make(chan []byte, feedSendBuffer)}
	if !f.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		conn.Close()
		return
	}

	go f.writeLoop(conn, c)

	// Drain client frames until the connection goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	f.remove(c)
}

func (f *Feed) writeLoop(conn *websocket.Conn, c *feedClient) {
	defer conn.Close()
	for data := range c.out {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			f.remove(c)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// Subscribers returns the number of connected clients.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		f.removeLocked(c)
	}
}

func (f *Feed) add(c *feedClient) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.clients[c] = struct{}{}
	return true
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(c)
}

func (f *Feed) removeLocked(c *feedClient) {
	if _, ok := f.clients[c]; !ok {
		return
	}
	delete(f.clients, c)
	close(c.out)
}
