// Package server broadcasts split progress to websocket clients.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10
)

type clientID uint64

func (id clientID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

type Server struct {
	upgrader websocket.Upgrader
	clients  cmap.ConcurrentMap[clientID, *client]
	nextID   atomic.Uint64
	port     int
	statusFn func() map[string]any
	helloFn  func() any
}

// New returns a server for port. statusFn feeds /status; helloFn, when set,
// provides the first message each websocket client receives.
func New(port int, statusFn func() map[string]any, helloFn func() any) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  cmap.NewStringer[clientID, *client](),
		port:     port,
		statusFn: statusFn,
		helloFn:  helloFn,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Run serves until ctx is done or messages is closed and drained.
func (s *Server) Run(ctx context.Context, messages <-chan any) error {
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		s.broadcast(ctx, messages)
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-drained:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logrus.Infof("progress server listening on :%d", s.port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "progress server")
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	id := clientID(s.nextID.Add(1))
	c := &client{conn: conn}
	if s.helloFn != nil {
		if hello := s.helloFn(); hello != nil {
			_ = c.writeJSON(hello)
		}
	}
	s.clients.Set(id, c)
	logrus.Debugf("progress client %s connected", id)

	go func() {
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()
		defer close(done)
		defer s.removeClient(id)
		for {
			// Clients only send control frames; reading keeps pongs flowing.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if s.statusFn != nil {
		if status := s.statusFn(); status != nil {
			payload = status
		}
	}
	payload["ws_clients"] = s.ClientCount()
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) broadcast(ctx context.Context, messages <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-messages:
			if !ok {
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				logrus.Warnf("progress encode failed: %v", err)
				continue
			}
			var stale []clientID
			s.clients.IterCb(func(id clientID, c *client) {
				if err := c.writeMessage(websocket.TextMessage, payload); err != nil {
					stale = append(stale, id)
				}
			})
			for _, id := range stale {
				s.removeClient(id)
			}
		}
	}
}

func (s *Server) removeClient(id clientID) {
	if c, ok := s.clients.Pop(id); ok {
		_ = c.conn.Close()
		logrus.Debugf("progress client %s removed", id)
	}
}

func (s *Server) closeClients() {
	for _, id := range s.clients.Keys() {
		if c, ok := s.clients.Pop(id); ok {
			_ = c.writeMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			_ = c.conn.Close()
		}
	}
}

func (s *Server) ClientCount() int {
	return s.clients.Count()
}

func (c *client) writeJSON(payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(payload)
}

func (c *client) writeMessage(messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}
