// ABOUTME: Per-connection protocol state machine for the realtime channel
// ABOUTME: Enforces the auth barrier, deadline timer, and post-auth event dispatch

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/anglerworks/angler-gateway/internal/auth"
	"github.com/anglerworks/angler-gateway/internal/metrics"
	"github.com/anglerworks/angler-gateway/internal/session"
	"github.com/anglerworks/angler-gateway/internal/store"
)

// State is the connection lifecycle state. Transitions only move forward:
// unauthenticated → authenticated → closed.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport abstracts the duplex connection under the state machine.
// Send must be safe for concurrent use; Close must be idempotent.
type Transport interface {
	Send(msg any) error
	Close(reason string) error
}

// CatchRecorder is the durable-append collaborator for fish_caught events.
type CatchRecorder interface {
	AppendCatch(ctx context.Context, catch *store.Catch) (int64, error)
}

// ConnParams bundles the dependencies for a connection.
type ConnParams struct {
	Transport   Transport
	Verifier    auth.TokenVerifier
	Registry    *session.Registry
	Recorder    CatchRecorder
	Metrics     *metrics.Metrics
	AuthTimeout time.Duration
	Logger      *slog.Logger
}

// Conn drives the protocol for one client connection. The transport's read
// loop feeds HandleMessage serially, so messages from one connection are
// always processed in arrival order; the auth deadline timer and Close may
// fire concurrently and are serialized by the connection mutex.
type Conn struct {
	transport   Transport
	verifier    auth.TokenVerifier
	registry    *session.Registry
	recorder    CatchRecorder
	metrics     *metrics.Metrics
	authTimeout time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	state     State
	claims    *auth.Claims
	authTimer *time.Timer
}

// NewConn creates a connection in the unauthenticated state. The auth
// deadline does not start until Start is called.
func NewConn(p ConnParams) *Conn {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		transport:   p.Transport,
		verifier:    p.Verifier,
		registry:    p.Registry,
		recorder:    p.Recorder,
		metrics:     p.Metrics,
		authTimeout: p.AuthTimeout,
		logger:      logger.With("component", "realtime"),
		state:       StateUnauthenticated,
	}
}

// Start arms the one-shot authentication deadline. If it fires before the
// connection authenticates, the client is notified and the connection
// closed. The timer callback re-checks state and commits the close in one
// critical section, so a fire that races a successful authentication is a
// guaranteed no-op.
func (c *Conn) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnauthenticated {
		return
	}
	c.authTimer = time.AfterFunc(c.authTimeout, c.onAuthDeadline)
}

func (c *Conn) onAuthDeadline() {
	c.mu.Lock()
	if c.state != StateUnauthenticated {
		// Authenticated or closed in the meantime; the deadline is void.
		c.mu.Unlock()
		return
	}
	// Check and transition under one lock hold: a concurrent successful
	// authentication must never interleave between them, or the deadline
	// would tear down a connection that already got its success ack.
	c.state = StateClosed
	c.authTimer = nil
	c.mu.Unlock()

	c.logger.Info("authentication deadline expired")
	if c.metrics != nil {
		c.metrics.AuthTimeouts.Inc()
	}
	// Never authenticated, so there is no presence entry to drop.
	c.sendError("authentication timeout")
	if err := c.transport.Close("authentication timeout"); err != nil {
		c.logger.Debug("transport close", "error", err)
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleMessage processes one raw inbound message. Malformed JSON is a
// protocol violation and closes the connection regardless of phase.
func (c *Conn) HandleMessage(ctx context.Context, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("malformed message", "error", err)
		c.sendError("malformed message")
		c.Close("malformed message")
		return
	}

	switch c.State() {
	case StateUnauthenticated:
		c.handlePreAuth(ctx, &msg)
	case StateAuthenticated:
		c.handlePostAuth(ctx, &msg)
	case StateClosed:
		// Late delivery from the transport after teardown; drop.
	}
}

// handlePreAuth admits exactly one message shape: an auth request. Anything
// else is a protocol violation and the connection is closed.
func (c *Conn) handlePreAuth(_ context.Context, msg *ClientMessage) {
	if msg.Event != EventAuth {
		c.sendError("authentication required")
		c.Close("authentication required")
		return
	}

	if msg.Token == "" {
		c.failAuth("token required")
		return
	}

	claims, err := c.verifier.Verify(msg.Token)
	if err != nil {
		c.logger.Info("token verification failed", "error", err)
		c.failAuth("invalid token")
		return
	}

	c.mu.Lock()
	if c.state != StateUnauthenticated {
		c.mu.Unlock()
		return
	}
	c.state = StateAuthenticated
	c.claims = claims
	if c.authTimer != nil {
		// Mandatory cancellation; a timer that already fired is voided by
		// the state check in onAuthDeadline.
		c.authTimer.Stop()
		c.authTimer = nil
	}
	c.mu.Unlock()

	c.registry.Register(claims.UserID, claims.Username, c.transport, msg.Config)
	if c.metrics != nil {
		c.metrics.AuthSuccesses.Inc()
		c.metrics.ConnectionsActive.Inc()
	}

	c.logger.Info("client authenticated",
		"user_id", claims.UserID,
		"username", claims.Username,
	)

	c.send(AuthenticatedMessage{
		Event:          EventAuthenticated,
		Success:        true,
		Username:       claims.Username,
		ConnectedUsers: c.registry.Count(),
	})
}

func (c *Conn) failAuth(reason string) {
	if c.metrics != nil {
		c.metrics.AuthFailures.Inc()
	}
	c.sendError(reason)
	c.Close(reason)
}

// handlePostAuth dispatches an authenticated client's message by event tag.
// Unknown tags are recoverable: the connection stays open.
func (c *Conn) handlePostAuth(ctx context.Context, msg *ClientMessage) {
	switch msg.Event {
	case EventFishCaught:
		c.handleFishCaught(ctx, msg)

	case EventConfigUpdate:
		c.registry.UpdateConfig(c.claims.UserID, msg.Config)
		c.send(ConfigUpdatedMessage{Event: EventConfigUpdated, Success: true})

	case EventHeartbeat:
		c.send(HeartbeatAckMessage{
			Event:     EventHeartbeatAck,
			Timestamp: time.Now().UnixMilli(),
		})

	default:
		c.send(ErrorMessage{Error: "unknown event", Event: msg.Event})
	}
}

// handleFishCaught appends one catch record for the connection's own user.
// The identity comes from the verified claims, never from the payload, so a
// client cannot write another user's statistics. A storage failure becomes
// a negative acknowledgment; it never tears down the connection.
func (c *Conn) handleFishCaught(ctx context.Context, msg *ClientMessage) {
	catch := &store.Catch{
		UserID:     c.claims.UserID,
		FishType:   msg.FishType,
		FishRarity: msg.FishRarity,
		ExpGained:  msg.ExpGained,
		CaughtAt:   time.Now(),
	}
	if catch.FishType == "" {
		catch.FishType = "unknown"
	}
	if catch.FishRarity == "" {
		catch.FishRarity = "common"
	}
	if msg.Timestamp > 0 {
		catch.CaughtAt = time.Unix(msg.Timestamp, 0)
	}

	id, err := c.recorder.AppendCatch(ctx, catch)
	if err != nil {
		c.logger.Error("recording catch failed",
			"user_id", c.claims.UserID,
			"error", err,
		)
		if c.metrics != nil {
			c.metrics.CatchWriteErrors.Inc()
		}
		c.send(FishRecordedMessage{
			Event:   EventFishRecorded,
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	if c.metrics != nil {
		c.metrics.CatchesRecorded.Inc()
	}
	c.logger.Debug("catch recorded",
		"user_id", c.claims.UserID,
		"catch_id", id,
		"fish_type", catch.FishType,
	)

	c.send(FishRecordedMessage{
		Event:      EventFishRecorded,
		Success:    true,
		FishID:     id,
		FishType:   catch.FishType,
		FishRarity: catch.FishRarity,
	})
}

// HandleTransportError logs a transport-level error. It does not close the
// connection: the transport is expected to also surface a close event.
func (c *Conn) HandleTransportError(err error) {
	c.logger.Warn("transport error", "error", err)
}

// Close transitions to the terminal state: the presence entry is removed,
// the deadline timer cancelled, and the transport released. Idempotent.
func (c *Conn) Close(reason string) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	wasAuthenticated := c.state == StateAuthenticated
	claims := c.claims
	c.state = StateClosed
	if c.authTimer != nil {
		c.authTimer.Stop()
		c.authTimer = nil
	}
	c.mu.Unlock()

	if wasAuthenticated {
		// Only drop the presence entry if it is still bound to this
		// connection; a newer connection for the same user may have
		// replaced it.
		c.registry.UnregisterHandle(claims.UserID, c.transport)
		if c.metrics != nil {
			c.metrics.ConnectionsActive.Dec()
		}
	}

	if err := c.transport.Close(reason); err != nil {
		c.logger.Debug("transport close", "error", err)
	}
}

// send pushes a message to the client, logging delivery failures. Outbound
// failures are not fatal here; the transport close path handles teardown.
func (c *Conn) send(msg any) {
	if err := c.transport.Send(msg); err != nil {
		c.logger.Debug("send failed", "error", err)
	}
}

func (c *Conn) sendError(text string) {
	c.send(ErrorMessage{Error: text})
}
