/*
Package player contains the core data structure for participant identity.

A player exists only for the lifetime of its WebSocket connection; there are no
accounts and no persistence.
*/
package player

// Player represents one participant inside a room.
// Fields use JSON tags for serialization in WebSocket messages.
type Player struct {
	// ID is the opaque per-connection identifier, stable for the connection's lifetime.
	ID string `json:"id"`

	// Nickname is the display name, unique within a room (case-sensitive exact match).
	Nickname string `json:"nickname"`

	// Avatar is an opaque client-chosen identifier. The server does not validate it.
	Avatar string `json:"avatar,omitempty"`
}
