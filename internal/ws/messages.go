// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines the envelopes broadcast to connected clients.
package ws

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeEvent     MsgType = "event"
	MsgTypePoolState MsgType = "pool_state"
	MsgTypeError     MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// EventMessage — one engine/pool/lockup/oracle event, pushed as it commits.
// ──────────────────────────────────────────────────────────────────────────────

// EventMessage wraps a committed domain event.  Event carries the event's own
// type discriminator; Data is the event struct itself.
type EventMessage struct {
	Type      MsgType     `json:"type"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// PoolStateMessage — periodic liquidity snapshot.
// ──────────────────────────────────────────────────────────────────────────────

// PoolStateMessage carries the pool's headline numbers for dashboards.
type PoolStateMessage struct {
	Type          MsgType     `json:"type"`
	TotalAssets   sdkmath.Int `json:"total_assets"`
	TotalReserved sdkmath.Int `json:"total_reserved"`
	FreeLiquidity sdkmath.Int `json:"free_liquidity"`
	MaxPayout     sdkmath.Int `json:"max_payout"`
	TicketCount   uint64      `json:"ticket_count"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
