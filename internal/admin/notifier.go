// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package admin

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/siphond/siphond/pkg/log"
	"github.com/siphond/siphond/pkg/model"
)

// Notifier fans FAILURE/WARNING/OKAY notifications out to every connected
// websocket client — this is the delivery side of the "wsnotify"
// mechanism; the notification callback it registers with the core simply
// calls Dispatch.
type Notifier struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newNotifier() *Notifier {
	return &Notifier{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

type wireNotification struct {
	Severity string `json:"severity"`
	Time     int64  `json:"time"`
	Message  string `json:"message"`
	Host     string `json:"host"`
	Plugin   string `json:"plugin"`
}

// Dispatch implements registry.NotificationFunc: it JSON-encodes n and
// writes it to every connected client, dropping (and closing) any
// connection whose write fails — §4.9's fan-out never blocks on a
// slow/broken subscriber for longer than a single write deadline.
func (n *Notifier) Dispatch(note model.Notification) error {
	wire := wireNotification{
		Severity: note.Severity.String(),
		Time:     note.Time.Nanos(),
		Message:  note.Message,
		Host:     note.Host,
		Plugin:   note.Plugin,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for conn := range n.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debugf("admin: dropping websocket client: %v", err)
			conn.Close()
			delete(n.clients, conn)
		}
	}
	return nil
}

func (n *Notifier) handleWebsocket(rw http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.Warnf("admin: websocket upgrade: %v", err)
		return
	}

	n.mu.Lock()
	n.clients[conn] = struct{}{}
	n.mu.Unlock()

	// Drain and discard anything the client sends; this endpoint is
	// publish-only. The read loop's only purpose is noticing the
	// connection close so the client can be dropped promptly.
	go func() {
		defer func() {
			n.mu.Lock()
			delete(n.clients, conn)
			n.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
