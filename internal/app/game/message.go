/*
Package game contains the core logic for the liar game: room state machines,
the room registry, client connections, and the wire protocol.

This file defines the event protocol. Every frame on the WebSocket, in either
direction, is a JSON envelope {type, payload} with a fixed payload schema per type.
*/
package game

import (
	"encoding/json"

	"liargame/internal/app/player"
	"liargame/internal/pkg/randx"
)

// EventType identifies an inbound client event.
type EventType string

const (
	EventJoin          EventType = "join"
	EventStartGame     EventType = "start_game"
	EventSendChat      EventType = "send_chat"
	EventCallVote      EventType = "call_vote"
	EventSubmitVote    EventType = "submit_vote"
	EventNextTurn      EventType = "next_turn"
	EventReturnToLobby EventType = "return_to_lobby"
)

// NoticeType identifies an outbound server notification.
type NoticeType string

const (
	NoticeJoined          NoticeType = "joined"
	NoticeRoomUpdate      NoticeType = "room_update"
	NoticeGameStarted     NoticeType = "game_started"
	NoticeChatMessage     NoticeType = "chat_message"
	NoticeTurnChanged     NoticeType = "turn_changed"
	NoticeVotingStarted   NoticeType = "voting_started"
	NoticeVoteUpdate      NoticeType = "vote_update"
	NoticeVoteResult      NoticeType = "vote_result"
	NoticePlayerLeft      NoticeType = "player_left"
	NoticeBecameHost      NoticeType = "became_host"
	NoticeReturnedToLobby NoticeType = "returned_to_lobby"
	NoticeError           NoticeType = "error"
)

// inboundEnvelope is the frame shape every client event must match.
type inboundEnvelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// noticeEnvelope is the frame shape of every server notification.
type noticeEnvelope struct {
	Type    NoticeType `json:"type"`
	Payload any        `json:"payload,omitempty"`
}

// NewNotice builds and marshals an outbound notification frame.
func NewNotice(t NoticeType, payload any) ([]byte, error) {
	return json.Marshal(noticeEnvelope{Type: t, Payload: payload})
}

// --- Inbound payloads ---

// JoinPayload is the payload of a "join" event.
type JoinPayload struct {
	RoomID            string `json:"roomId"`
	Nickname          string `json:"nickname"`
	Avatar            string `json:"avatar,omitempty"`
	CreateIfNotExists bool   `json:"createIfNotExists,omitempty"`
}

// RoomPayload is the payload of events that carry only the target room:
// start_game, call_vote, next_turn, return_to_lobby.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// ChatPayload is the payload of a "send_chat" event.
type ChatPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// VotePayload is the payload of a "submit_vote" event.
type VotePayload struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
}

// roomID extracts the normalized room code out of any inbound payload.
func roomID(payloadBytes json.RawMessage) (string, bool) {
	var probe RoomPayload
	if err := json.Unmarshal(payloadBytes, &probe); err != nil {
		return "", false
	}
	return randx.NormalizeRoomCode(probe.RoomID), true
}

// --- Outbound payloads ---

// JoinedPayload confirms a successful join to the joining connection only.
type JoinedPayload struct {
	RoomCode string `json:"roomCode"`
	IsHost   bool   `json:"isHost"`
}

// RoomUpdatePayload is the public roster/state broadcast.
type RoomUpdatePayload struct {
	Players             []player.Player `json:"players"`
	Host                string          `json:"host"`
	State               RoomState       `json:"state"`
	CurrentTurnPlayerID string          `json:"currentTurnPlayerId,omitempty"`
}

// TurnOrderEntry is one slot of the published turn order.
type TurnOrderEntry struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar,omitempty"`
}

// GameStartedPayload is sent individually per player at game start.
// Word is nil exactly for the liar.
type GameStartedPayload struct {
	IsLiar              bool             `json:"isLiar"`
	Category            string           `json:"category"`
	Word                *string          `json:"word"`
	TurnOrder           []TurnOrderEntry `json:"turnOrder"`
	CurrentTurnPlayerID string           `json:"currentTurnPlayerId"`
}

// ChatMessagePayload is a broadcast chat record. Timestamp is Unix milliseconds.
type ChatMessagePayload struct {
	PlayerID  string `json:"playerId"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// TurnChangedPayload announces the next player to act and the current round.
type TurnChangedPayload struct {
	CurrentTurnPlayerID string `json:"currentTurnPlayerId"`
	Round               int    `json:"round"`
}

// VotingStartedPayload announces the nominal voting time limit in seconds.
// The server-side deadline adds a grace margin on top of this.
type VotingStartedPayload struct {
	TimeLimit int `json:"timeLimit"`
}

// VoteUpdatePayload is broadcast after each accepted vote.
type VoteUpdatePayload struct {
	VoteCount    int `json:"voteCount"`
	TotalPlayers int `json:"totalPlayers"`
}

// VoteResultPayload is the full reveal broadcast when voting resolves.
type VoteResultPayload struct {
	Eliminated *player.Player    `json:"eliminated"`
	IsLiar     bool              `json:"isLiar"`
	Liar       *player.Player    `json:"liar"`
	Topic      *Topic            `json:"topic"`
	Tally      map[string]int    `json:"tally"`
	Votes      map[string]string `json:"votes"`
	Tied       bool              `json:"tied"`
}

// PlayerLeftPayload is broadcast when a player disconnects.
type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
}

// ErrorPayload is delivered only to the connection whose event was rejected.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
