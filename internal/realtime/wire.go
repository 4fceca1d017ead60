// ABOUTME: Wire-format types for the realtime channel
// ABOUTME: JSON messages exchanged with the fishing-bot client over the websocket

package realtime

// Client → server event tags.
const (
	EventAuth         = "auth"
	EventFishCaught   = "fish_caught"
	EventConfigUpdate = "config_update"
	EventHeartbeat    = "heartbeat"
)

// Server → client event tags.
const (
	EventAuthenticated = "authenticated"
	EventFishRecorded  = "fish_recorded"
	EventConfigUpdated = "config_updated"
	EventHeartbeatAck  = "heartbeat_ack"
)

// ClientMessage is the envelope for every inbound message. Which fields are
// meaningful depends on the event tag; unknown fields are ignored.
type ClientMessage struct {
	Event string `json:"event"`

	// auth
	Token  string         `json:"token,omitempty"`
	Config map[string]any `json:"config,omitempty"`

	// fish_caught; all optional, defaulted at ingestion
	FishType   string `json:"fish_type,omitempty"`
	FishRarity string `json:"fish_rarity,omitempty"`
	ExpGained  int64  `json:"exp_gained,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"` // unix seconds, client clock
}

// AuthenticatedMessage acknowledges a successful authentication.
type AuthenticatedMessage struct {
	Event          string `json:"event"`
	Success        bool   `json:"success"`
	Username       string `json:"username"`
	ConnectedUsers int    `json:"connectedUsers"`
}

// FishRecordedMessage acknowledges one fish_caught event, positively with
// the durable record id or negatively with the write error.
type FishRecordedMessage struct {
	Event      string `json:"event"`
	Success    bool   `json:"success"`
	FishID     int64  `json:"fish_id,omitempty"`
	FishType   string `json:"fish_type,omitempty"`
	FishRarity string `json:"fish_rarity,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ConfigUpdatedMessage acknowledges a config replacement.
type ConfigUpdatedMessage struct {
	Event   string `json:"event"`
	Success bool   `json:"success"`
}

// HeartbeatAckMessage answers a liveness ping with the server clock.
type HeartbeatAckMessage struct {
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// ErrorMessage reports a failure. For unknown event tags the offending tag
// is echoed back so the client can correlate.
type ErrorMessage struct {
	Error string `json:"error"`
	Event string `json:"event,omitempty"`
}
