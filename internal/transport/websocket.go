// SPDX-License-Identifier: MIT
package transport

import (
	"datawave/internal/log"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	SpectrumPath = "/spectrum"
	MetricsPath  = "/metrics"

	defaultQueueSize = 256
	writeTimeout     = time.Second
)

// WebSocketOptions configures the monitor HTTP server.
type WebSocketOptions struct {
	Addr      string
	QueueSize int                 // Frames buffered before Send drops; 0 uses 256.
	Gatherer  prometheus.Gatherer // Served on /metrics when non-nil.
	OnClients func(n int)         // Called whenever the client count changes.
}

// WebSocketTransport broadcasts frames as JSON to every client connected to
// /spectrum. The same server exposes /metrics.
type WebSocketTransport struct {
	opts     WebSocketOptions
	upgrader websocket.Upgrader
	listener net.Listener
	server   *http.Server
	entry    *logrus.Entry

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}

	broadcast chan any
	done      chan struct{}
	closed    atomic.Bool
	wg        sync.WaitGroup
}

// NewWebSocketTransport listens on opts.Addr and starts serving. Use ":0" to
// pick a free port and Addr to find it.
func NewWebSocketTransport(opts WebSocketOptions) (*WebSocketTransport, error) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, err
	}

	wst := &WebSocketTransport{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		listener:  ln,
		entry:     log.With("component", "websocket"),
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, opts.QueueSize),
		done:      make(chan struct{}),
	}
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	wst.wg.Add(2)
	go func() {
		defer wst.wg.Done()
		wst.entry.Infof("serving %s and %s on %s", SpectrumPath, MetricsPath, ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wst.entry.Errorf("server error: %v", err)
		}
	}()
	go func() {
		defer wst.wg.Done()
		wst.handleBroadcasts()
	}()
	return wst, nil
}

// Handler returns the HTTP routes served by the transport.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(SpectrumPath, wst.handleWebSocket)
	if wst.opts.Gatherer != nil {
		mux.Handle(MetricsPath, promhttp.HandlerFor(wst.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Addr returns the address the server is listening on.
func (wst *WebSocketTransport) Addr() string {
	return wst.listener.Addr().String()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.entry.Warnf("upgrade error: %v", err)
		return
	}
	n := wst.addClient(conn)
	wst.entry.Debugf("client connected, total: %d", n)

	// Clients only listen; the first read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) addClient(conn *websocket.Conn) int {
	wst.clientsMu.Lock()
	wst.clients[conn] = struct{}{}
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.notifyClients(n)
	return n
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	if !ok {
		return
	}
	conn.Close()
	wst.notifyClients(n)
	wst.entry.Debugf("client disconnected, total: %d", n)
}

func (wst *WebSocketTransport) notifyClients(n int) {
	if wst.opts.OnClients != nil {
		wst.opts.OnClients(n)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			conns := make([]*websocket.Conn, 0, len(wst.clients))
			for c := range wst.clients {
				conns = append(conns, c)
			}
			wst.clientsMu.Unlock()

			for _, c := range conns {
				c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteJSON(data); err != nil {
					wst.entry.Debugf("write error: %v", err)
					wst.removeClient(c)
				}
			}
		}
	}
}

// Send queues data for broadcast. It never blocks; a full queue returns
// ErrQueueFull and the frame is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	if wst.closed.Load() {
		return ErrClosed
	}
	select {
	case wst.broadcast <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close disconnects every client and stops the server. It is idempotent.
func (wst *WebSocketTransport) Close() error {
	if !wst.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(wst.done)
	err := wst.server.Close()

	wst.clientsMu.Lock()
	for c := range wst.clients {
		c.Close()
	}
	clear(wst.clients)
	wst.clientsMu.Unlock()
	wst.notifyClients(0)

	wst.wg.Wait()
	wst.entry.Info("closed")
	return err
}

func (wst *WebSocketTransport) Name() string { return "websocket" }

var _ Transport = (*WebSocketTransport)(nil)
