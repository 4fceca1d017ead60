// ABOUTME: WebSocket endpoint that binds incoming connections to the protocol state machine
// ABOUTME: owns the read loop and the write-side transport wrapper

package realtime

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/anglerworks/angler-gateway/internal/auth"
	"github.com/anglerworks/angler-gateway/internal/metrics"
	"github.com/anglerworks/angler-gateway/internal/session"
)

const writeTimeout = 10 * time.Second

// Handler upgrades HTTP requests to WebSocket connections and runs the
// per-connection protocol loop until the peer disconnects.
type Handler struct {
	Verifier    auth.TokenVerifier
	Registry    *session.Registry
	Recorder    CatchRecorder
	Metrics     *metrics.Metrics
	AuthTimeout time.Duration
	Logger      *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Bot clients connect from desktop processes, not browsers.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.Logger.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	transport := newWSTransport(ws)
	conn := NewConn(ConnParams{
		Transport:   transport,
		Verifier:    h.Verifier,
		Registry:    h.Registry,
		Recorder:    h.Recorder,
		Metrics:     h.Metrics,
		AuthTimeout: h.AuthTimeout,
		Logger:      h.Logger.With("remote", r.RemoteAddr),
	})
	conn.Start()
	defer conn.Close("connection closed")

	ctx := r.Context()
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			conn.HandleTransportError(err)
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		conn.HandleMessage(ctx, data)
	}
}

// wsTransport serializes writes to a websocket connection. It satisfies
// both the connection Transport and the registry Handle.
type wsTransport struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newWSTransport(ws *websocket.Conn) *wsTransport {
	return &wsTransport{ws: ws}
}

func (t *wsTransport) Send(msg any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return net.ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, t.ws, msg)
}

func (t *wsTransport) Close(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.ws.Close(websocket.StatusNormalClosure, reason)
}
