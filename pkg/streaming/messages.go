// Package streaming defines the wire messages of the live journal stream.
package streaming

import (
	"encoding/json"

	"github.com/imbuefx/enrichments/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession    = "start_session"
	TypeEndSession      = "end_session"
	TypeTrigger         = "trigger"
	TypeChainWalk       = "chain_walk"
	TypeDetonation      = "detonation"
	TypeActorTransition = "actor_transition"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces a session and the enrichments it runs with.
type StartSessionPayload struct {
	Session     *core.Session `json:"session"`
	Enrichments []string      `json:"enrichments,omitempty"`
}
