// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "voicepitch/internal/log"
)

// PitchPath is the websocket endpoint displays connect to.
const PitchPath = "/pitch"

// broadcastQueue bounds the messages waiting for slow clients; newer messages
// are dropped while it is full.
const broadcastQueue = 256

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// WebSocket implements the Transport interface for WebSocket connections.
// Messages are JSON encoded and broadcast to every connected client.
type WebSocket struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	listener  net.Listener
	log       *applog.Logger
}

// NewWebSocket creates a WebSocket transport for addr and starts its
// broadcast loop. Call Start to listen, or mount Handler on another server.
func NewWebSocket(addr string) *WebSocket {
	ws := &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Displays are served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
		log:       applog.With("WebSocket"),
	}

	go ws.handleBroadcasts()
	return ws
}

// Handler returns the HTTP handler serving PitchPath.
func (ws *WebSocket) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PitchPath, ws.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background. Bind
// errors are returned synchronously.
func (ws *WebSocket) Start() error {
	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ws.addr, err)
	}
	ws.listener = listener
	ws.server = &http.Server{Handler: ws.Handler()}

	go func() {
		ws.log.Infof("serving estimates on ws://%s%s", listener.Addr(), PitchPath)
		if err := ws.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.log.Errorf("server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (ws *WebSocket) Addr() string {
	if ws.listener != nil {
		return ws.listener.Addr().String()
	}
	return ws.addr
}

// Clients returns the number of connected clients.
func (ws *WebSocket) Clients() int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	return len(ws.clients)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (ws *WebSocket) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Warnf("upgrade error: %v", err)
		return
	}

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	total := len(ws.clients)
	ws.clientsMu.Unlock()
	ws.log.Infof("client connected, total: %d", total)

	// Clients never send; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ws.drop(conn)
				return
			}
		}
	}()
}

func (ws *WebSocket) drop(conn *websocket.Conn) {
	ws.clientsMu.Lock()
	_, ok := ws.clients[conn]
	delete(ws.clients, conn)
	total := len(ws.clients)
	ws.clientsMu.Unlock()

	conn.Close()
	if ok {
		ws.log.Infof("client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (ws *WebSocket) handleBroadcasts() {
	for {
		select {
		case <-ws.done:
			return
		case data := <-ws.broadcast:
			ws.clientsMu.Lock()
			for client := range ws.clients {
				if err := client.WriteJSON(data); err != nil {
					ws.log.Warnf("error sending to client: %v", err)
					client.Close()
					delete(ws.clients, client)
				}
			}
			ws.clientsMu.Unlock()
		}
	}
}

// Send queues data for every connected client. When the queue is full the
// message is dropped.
func (ws *WebSocket) Send(data any) error {
	select {
	case <-ws.done:
		return ErrClosed
	default:
	}

	select {
	case ws.broadcast <- data:
	default:
		ws.log.Debugf("broadcast queue full, dropping %T", data)
	}
	return nil
}

// Close disconnects all clients and shuts down the server. It is idempotent.
func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		close(ws.done)

		ws.clientsMu.Lock()
		for client := range ws.clients {
			client.Close()
		}
		clear(ws.clients)
		ws.clientsMu.Unlock()

		if ws.server != nil {
			err = ws.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocket)(nil)
