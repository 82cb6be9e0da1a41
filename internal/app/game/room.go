/*
Package game contains the core logic for the liar game.

This file defines the Room struct, the per-session state machine. A Room owns all
mutable game state and runs a single goroutine (Run) that is the only writer of that
state: inbound client events, disconnects, status probes, and vote-deadline
expirations all arrive on the loop's channels, so no two events for the same room
ever interleave mid-mutation. Rooms are fully independent of each other.
*/
package game

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"liargame/internal/app/player"
	"liargame/internal/pkg/errs"
	"liargame/internal/pkg/logx"
)

const (
	// MaxPlayers is the room capacity.
	MaxPlayers = 8

	// MinPlayers is the minimum number of players required to start a game.
	MinPlayers = 3

	// maxChatRunes is the length chat messages are truncated to.
	maxChatRunes = 200

	// voteGraceMargin is added server-side on top of the nominal voting time limit,
	// so clients that submit right at the buzzer are not cut off by clock skew.
	voteGraceMargin = 2 * time.Second

	// inboxBuffer sizes the room's event channel.
	inboxBuffer = 256
)

// RoomState enumerates the phases of a room's game cycle.
type RoomState string

const (
	StateLobby   RoomState = "lobby"
	StatePlaying RoomState = "playing"
	StateVoting  RoomState = "voting"
	StateResult  RoomState = "result"
)

// inboundEvent is one client event queued for the room loop.
type inboundEvent struct {
	client  *Client
	typ     EventType
	payload json.RawMessage
}

// RoomStatus is the snapshot served to the REST side channel.
type RoomStatus struct {
	PlayerCount int       `json:"playerCount"`
	State       RoomState `json:"state"`
}

type statusRequest struct {
	reply chan RoomStatus
}

// Room is a single game session, keyed by its code.
//
// Exported fields are immutable after construction. Everything else is owned by the
// Run goroutine and must not be touched from outside it.
type Room struct {
	// Code is the unique uppercase room identifier.
	Code string

	// CreatedAt is used by the registry's expiry sweep.
	CreatedAt time.Time

	voteTimeLimit time.Duration

	// players holds the roster in join order; the order is user-visible and
	// determines host succession.
	players []player.Player

	// clients maps a player id to its live connection.
	clients map[string]*Client

	hostID string
	state  RoomState

	// topic and liarID are set from game start until return-to-lobby.
	topic  *Topic
	liarID string

	// roster snapshots every player present at game start, so identities can
	// still be revealed after a mid-game disconnect.
	roster map[string]player.Player

	// turnOrder is a permutation of the player ids present at game start.
	// It is never recomputed; slots of departed players are skipped at turn time.
	turnOrder   []string
	currentTurn int
	round       int

	// votes maps voter id to target id, at most one entry per voter.
	votes map[string]string

	chat []ChatMessagePayload

	vt *voteTimer

	inbox    chan inboundEvent
	leaves   chan *Client
	status   chan statusRequest
	stopChan chan struct{}

	// cleanupChan notifies the registry when the Run loop has finished.
	cleanupChan chan<- roomCleanupMsg

	logger zerolog.Logger
}

// newRoom creates a Room in Lobby state. The caller starts its Run loop.
func newRoom(code string, voteTimeLimit time.Duration, cleanupChan chan<- roomCleanupMsg) *Room {
	roomLogger := logx.Logger().With().
		Str("room_code", code).
		Logger()

	return &Room{
		Code:          code,
		CreatedAt:     time.Now(),
		voteTimeLimit: voteTimeLimit,
		clients:       make(map[string]*Client),
		state:         StateLobby,
		round:         1,
		votes:         make(map[string]string),
		vt:            newVoteTimer(),
		inbox:         make(chan inboundEvent, inboxBuffer),
		leaves:        make(chan *Client, MaxPlayers),
		status:        make(chan statusRequest),
		stopChan:      make(chan struct{}),
		cleanupChan:   cleanupChan,
		logger:        roomLogger,
	}
}

// Stop signals the Room's Run loop to terminate immediately.
func (r *Room) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// deliver queues a client event for the room loop. If the loop is gone or the inbox
// is saturated, the event is dropped: a room that vanished between dispatch and
// execution is a defensive no-op, not an error.
func (r *Room) deliver(c *Client, typ EventType, payload json.RawMessage) {
	select {
	case r.inbox <- inboundEvent{client: c, typ: typ, payload: payload}:
	default:
		r.logger.Warn().
			Str("event_type", string(typ)).
			Str("player_id", c.playerID).
			Msg("Room inbox unavailable. Dropping event.")
	}
}

// notifyLeave queues a disconnect notification for the room loop.
func (r *Room) notifyLeave(c *Client) {
	select {
	case r.leaves <- c:
	default:
		r.logger.Warn().
			Str("player_id", c.playerID).
			Msg("Room leave channel unavailable. Dropping disconnect notification.")
	}
}

// Status asks the room loop for a state snapshot. The second return value is false
// when the loop did not answer in time (stopped or being destroyed).
func (r *Room) Status() (RoomStatus, bool) {
	req := statusRequest{reply: make(chan RoomStatus, 1)}

	select {
	case r.status <- req:
	case <-r.stopChan:
		return RoomStatus{}, false
	case <-time.After(time.Second):
		return RoomStatus{}, false
	}

	select {
	case s := <-req.reply:
		return s, true
	case <-time.After(time.Second):
		return RoomStatus{}, false
	}
}

// Run is the room's main event loop. It exits when the room becomes empty or is
// stopped, then notifies the registry for cleanup.
func (r *Room) Run() {
	defer r.finish()

	for {
		select {
		case ev := <-r.inbox:
			r.dispatch(ev)

		case c := <-r.leaves:
			r.handleLeave(c)
			if len(r.players) == 0 {
				r.logger.Info().Msg("Room is empty. Shutting down.")
				return
			}

		case exp := <-r.vt.fired:
			r.handleVoteDeadline(exp.epoch)

		case req := <-r.status:
			req.reply <- RoomStatus{PlayerCount: len(r.players), State: r.state}

		case <-r.stopChan:
			r.logger.Info().Msg("Room stop requested.")
			return
		}
	}
}

// finish cancels any outstanding deadline, closes the remaining client send
// queues, and notifies the registry to drop the room.
func (r *Room) finish() {
	// mark the room stopped however the loop exited, so Status and late
	// deliveries fail fast instead of waiting on a dead loop
	r.Stop()

	r.vt.Disarm()

	for _, c := range r.clients {
		c.closeSend()
	}

	select {
	case r.cleanupChan <- roomCleanupMsg{code: r.Code}:
	default:
		r.logger.Warn().Msg("Registry cleanup channel unavailable. Skipping cleanup notification.")
	}
}

// dispatch validates the sender and routes one inbound event to its transition.
func (r *Room) dispatch(ev inboundEvent) {
	if ev.typ == EventJoin {
		var p JoinPayload
		if err := json.Unmarshal(ev.payload, &p); err != nil {
			ev.client.SendError(errs.NewError(errs.ErrInvalidParams))
			return
		}
		r.handleJoin(ev.client, p)
		return
	}

	// every other event requires the sender to be a member of this room
	if current, ok := r.clients[ev.client.playerID]; !ok || current != ev.client {
		ev.client.SendError(errs.NewError(errs.ErrNotJoined))
		return
	}

	switch ev.typ {
	case EventStartGame:
		r.handleStartGame(ev.client)

	case EventSendChat:
		var p ChatPayload
		if err := json.Unmarshal(ev.payload, &p); err != nil {
			ev.client.SendError(errs.NewError(errs.ErrInvalidParams))
			return
		}
		r.handleChat(ev.client, p.Message)

	case EventCallVote:
		r.handleCallVote(ev.client)

	case EventSubmitVote:
		var p VotePayload
		if err := json.Unmarshal(ev.payload, &p); err != nil {
			ev.client.SendError(errs.NewError(errs.ErrInvalidParams))
			return
		}
		r.handleSubmitVote(ev.client, p.TargetID)

	case EventNextTurn:
		r.handleNextTurn(ev.client)

	case EventReturnToLobby:
		r.handleReturnToLobby(ev.client)

	default:
		r.logger.Warn().Str("event_type", string(ev.typ)).Msg("Unsupported event type.")
	}
}

// handleJoin appends a player in Lobby state and assigns the host if unset.
func (r *Room) handleJoin(c *Client, p JoinPayload) {
	if _, joined := r.clients[c.playerID]; joined {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if r.state != StateLobby {
		c.SendError(errs.NewError(errs.ErrGameInProgress))
		return
	}

	if len(r.players) >= MaxPlayers {
		c.SendError(errs.NewError(errs.ErrRoomIsFull, MaxPlayers))
		return
	}

	for _, existing := range r.players {
		if existing.Nickname == p.Nickname {
			c.SendError(errs.NewError(errs.ErrNicknameTaken, p.Nickname))
			return
		}
	}

	joining := player.Player{
		ID:       c.playerID,
		Nickname: p.Nickname,
		Avatar:   p.Avatar,
	}

	r.players = append(r.players, joining)
	r.clients[c.playerID] = c
	if r.hostID == "" {
		r.hostID = c.playerID
	}

	c.setRoom(r)

	r.logger.Info().
		Str("player_id", c.playerID).
		Str("nickname", p.Nickname).
		Int("total_players", len(r.players)).
		Msg("Player joined room.")

	r.broadcastRoomUpdate()
	r.sendTo(c, NoticeJoined, JoinedPayload{
		RoomCode: r.Code,
		IsHost:   r.hostID == c.playerID,
	})
}

// handleStartGame transitions Lobby -> Playing: draws the topic, picks the liar,
// shuffles the turn order, and deals each player an individualized payload.
func (r *Room) handleStartGame(c *Client) {
	if c.playerID != r.hostID {
		c.SendError(errs.NewError(errs.ErrNotHost))
		return
	}

	if r.state != StateLobby {
		c.SendError(errs.NewError(errs.ErrWrongPhase))
		return
	}

	if len(r.players) < MinPlayers {
		c.SendError(errs.NewError(errs.ErrNotEnoughPlayers, MinPlayers))
		return
	}

	topic := randomTopic()
	liar := r.players[randIndex(len(r.players))]

	ids := make([]string, len(r.players))
	roster := make(map[string]player.Player, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
		roster[p.ID] = p
	}

	r.topic = &topic
	r.liarID = liar.ID
	r.roster = roster
	r.turnOrder = shuffledOrder(ids)
	r.currentTurn = 0
	r.round = 1
	r.votes = make(map[string]string)
	r.chat = nil
	r.state = StatePlaying

	r.logger.Info().
		Str("liar_nickname", liar.Nickname).
		Str("category", topic.Category).
		Int("players", len(r.players)).
		Msg("Game started.")

	turnEntries := make([]TurnOrderEntry, len(r.turnOrder))
	for i, id := range r.turnOrder {
		p := roster[id]
		turnEntries[i] = TurnOrderEntry{ID: p.ID, Nickname: p.Nickname, Avatar: p.Avatar}
	}

	for _, p := range r.players {
		isLiar := p.ID == r.liarID

		var word *string
		if !isLiar {
			w := topic.Word
			word = &w
		}

		r.sendTo(r.clients[p.ID], NoticeGameStarted, GameStartedPayload{
			IsLiar:              isLiar,
			Category:            topic.Category,
			Word:                word,
			TurnOrder:           turnEntries,
			CurrentTurnPlayerID: r.turnOrder[0],
		})
	}

	r.broadcastRoomUpdate()
}

// handleChat appends a chat record for the current-turn player and advances the turn.
func (r *Room) handleChat(c *Client, text string) {
	if r.state != StatePlaying {
		c.SendError(errs.NewError(errs.ErrWrongPhase))
		return
	}

	if c.playerID != r.turnOrder[r.currentTurn] {
		c.SendError(errs.NewError(errs.ErrNotYourTurn))
		return
	}

	sender := r.roster[c.playerID]

	msg := ChatMessagePayload{
		PlayerID:  sender.ID,
		Nickname:  sender.Nickname,
		Avatar:    sender.Avatar,
		Message:   truncateRunes(text, maxChatRunes),
		Timestamp: time.Now().UnixMilli(),
	}

	r.chat = append(r.chat, msg)
	r.broadcast(NoticeChatMessage, msg)

	next, wraps := r.advancePastAbsent(r.currentTurn)
	r.currentTurn = next
	r.round += wraps

	r.broadcast(NoticeTurnChanged, TurnChangedPayload{
		CurrentTurnPlayerID: r.turnOrder[r.currentTurn],
		Round:               r.round,
	})
}

// handleCallVote transitions Playing -> Voting and arms the deadline with a
// server-side grace margin beyond the nominal limit.
func (r *Room) handleCallVote(c *Client) {
	if r.state != StatePlaying {
		c.SendError(errs.NewError(errs.ErrWrongPhase))
		return
	}

	r.state = StateVoting
	r.votes = make(map[string]string)

	r.broadcast(NoticeVotingStarted, VotingStartedPayload{
		TimeLimit: int(r.voteTimeLimit / time.Second),
	})

	epoch := r.vt.Arm(r.voteTimeLimit + voteGraceMargin)

	r.logger.Info().
		Uint64("vote_epoch", epoch).
		Dur("deadline", r.voteTimeLimit+voteGraceMargin).
		Msg("Voting started.")
}

// handleSubmitVote records one vote per voter; reaching full quorum resolves
// voting immediately.
func (r *Room) handleSubmitVote(c *Client, targetID string) {
	if r.state != StateVoting {
		c.SendError(errs.NewError(errs.ErrWrongPhase))
		return
	}

	if _, voted := r.votes[c.playerID]; voted {
		// first-write-wins: duplicate submissions after the first are ignored
		c.SendError(errs.NewError(errs.ErrAlreadyVoted))
		return
	}

	if _, known := r.roster[targetID]; !known {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	r.votes[c.playerID] = targetID

	r.broadcast(NoticeVoteUpdate, VoteUpdatePayload{
		VoteCount:    len(r.votes),
		TotalPlayers: len(r.players),
	})

	if len(r.votes) >= len(r.players) {
		r.vt.Disarm()
		r.endVoting()
	}
}

// handleVoteDeadline resolves voting when the armed deadline fires. A stale epoch,
// or a room that already left the Voting state, makes the firing a no-op.
func (r *Room) handleVoteDeadline(epoch uint64) {
	if r.vt.Stale(epoch) {
		r.logger.Debug().Uint64("vote_epoch", epoch).Msg("Ignoring stale vote deadline.")
		return
	}

	if r.state != StateVoting {
		return
	}

	r.vt.Disarm()
	r.logger.Info().Msg("Vote deadline elapsed. Forcing resolution.")
	r.endVoting()
}

// endVoting tallies votes, eliminates the strict-maximum target (no one on a tie),
// reveals the liar and topic, and transitions to Result.
func (r *Room) endVoting() {
	tally := make(map[string]int)
	for _, targetID := range r.votes {
		tally[targetID]++
	}

	maxVotes := 0
	eliminatedID := ""
	for id, count := range tally {
		if count > maxVotes {
			maxVotes = count
			eliminatedID = id
		}
	}

	topCount := 0
	for _, count := range tally {
		if count == maxVotes {
			topCount++
		}
	}

	tied := topCount > 1
	if tied {
		eliminatedID = ""
	}

	var eliminated *player.Player
	if eliminatedID != "" {
		if p, ok := r.roster[eliminatedID]; ok {
			eliminated = &p
		}
	}

	var liar *player.Player
	if p, ok := r.roster[r.liarID]; ok {
		liar = &p
	}

	r.state = StateResult

	r.logger.Info().
		Str("eliminated_id", eliminatedID).
		Bool("tied", tied).
		Int("votes", len(r.votes)).
		Msg("Voting resolved.")

	r.broadcast(NoticeVoteResult, VoteResultPayload{
		Eliminated: eliminated,
		IsLiar:     eliminated != nil && eliminatedID == r.liarID,
		Liar:       liar,
		Topic:      r.topic,
		Tally:      tally,
		Votes:      r.votes,
		Tied:       tied,
	})
}

// handleNextTurn resumes play after a result on the same topic, liar, and turn
// order: a new discussion round on the same secret.
func (r *Room) handleNextTurn(c *Client) {
	if c.playerID != r.hostID {
		c.SendError(errs.NewError(errs.ErrNotHost))
		return
	}

	if r.state != StateResult {
		c.SendError(errs.NewError(errs.ErrWrongPhase))
		return
	}

	r.state = StatePlaying

	// the current slot holder may have left during voting or the result screen
	if _, present := r.clients[r.turnOrder[r.currentTurn]]; !present {
		next, wraps := r.advancePastAbsent(r.currentTurn)
		r.currentTurn = next
		r.round += wraps
	}

	r.broadcastRoomUpdate()
}

// handleReturnToLobby resets the room to Lobby from any state, cancelling any
// pending deadline and clearing all game progress.
func (r *Room) handleReturnToLobby(c *Client) {
	if c.playerID != r.hostID {
		c.SendError(errs.NewError(errs.ErrNotHost))
		return
	}

	r.resetToLobby()

	r.broadcast(NoticeReturnedToLobby, nil)
	r.broadcastRoomUpdate()
}

// resetToLobby clears all game state. The roster and host survive.
func (r *Room) resetToLobby() {
	r.vt.Disarm()

	r.state = StateLobby
	r.topic = nil
	r.liarID = ""
	r.roster = nil
	r.turnOrder = nil
	r.currentTurn = 0
	r.round = 1
	r.votes = make(map[string]string)
	r.chat = nil
}

// handleLeave removes a disconnected player, migrates the host to the
// earliest-joined remaining player, and repairs the turn pointer when the
// departing player was up. turnOrder and votes are deliberately left untouched.
func (r *Room) handleLeave(c *Client) {
	current, ok := r.clients[c.playerID]
	if !ok || current != c {
		// stale or unknown connection, nothing to do
		return
	}

	var leaving player.Player
	for i, p := range r.players {
		if p.ID == c.playerID {
			leaving = p
			r.players = slices.Delete(r.players, i, i+1)
			break
		}
	}

	delete(r.clients, c.playerID)
	c.closeSend()

	r.logger.Info().
		Str("player_id", leaving.ID).
		Str("nickname", leaving.Nickname).
		Int("remaining", len(r.players)).
		Msg("Player left room.")

	if len(r.players) == 0 {
		r.vt.Disarm()
		return
	}

	if r.hostID == leaving.ID {
		r.hostID = r.players[0].ID
		r.sendTo(r.clients[r.hostID], NoticeBecameHost, nil)
	}

	r.broadcast(NoticePlayerLeft, PlayerLeftPayload{
		PlayerID: leaving.ID,
		Nickname: leaving.Nickname,
	})
	r.broadcastRoomUpdate()

	switch r.state {
	case StatePlaying:
		if r.turnOrder[r.currentTurn] == leaving.ID {
			next, wraps := r.advancePastAbsent(r.currentTurn)
			r.currentTurn = next
			r.round += wraps

			r.broadcast(NoticeTurnChanged, TurnChangedPayload{
				CurrentTurnPlayerID: r.turnOrder[r.currentTurn],
				Round:               r.round,
			})
		}

	case StateVoting:
		// the quorum threshold shrank; everyone left may already have voted
		if len(r.votes) >= len(r.players) {
			r.vt.Disarm()
			r.endVoting()
		}
	}
}

// advancePastAbsent advances the turn pointer at least once and keeps going past
// slots whose player has disconnected. It returns the new index and the number of
// completed wraps (round increments). turnOrder always contains at least one
// present player while the room is non-empty, because joins are Lobby-only.
func (r *Room) advancePastAbsent(from int) (next int, wraps int) {
	next = from

	for range r.turnOrder {
		var wrapped bool
		next, wrapped = advanceTurn(len(r.turnOrder), next)
		if wrapped {
			wraps++
		}

		if _, present := r.clients[r.turnOrder[next]]; present {
			return next, wraps
		}
	}

	return from, wraps
}

// broadcastRoomUpdate sends the public roster/host/state notice to every member.
func (r *Room) broadcastRoomUpdate() {
	p := RoomUpdatePayload{
		Players: slices.Clone(r.players),
		Host:    r.hostID,
		State:   r.state,
	}

	if r.state == StatePlaying && len(r.turnOrder) > 0 {
		p.CurrentTurnPlayerID = r.turnOrder[r.currentTurn]
	}

	r.broadcast(NoticeRoomUpdate, p)
}

// broadcast queues a notification for every connected member.
func (r *Room) broadcast(t NoticeType, payload any) {
	frame, err := NewNotice(t, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("notice_type", string(t)).Msg("Failed to marshal broadcast.")
		return
	}

	for _, c := range r.clients {
		c.enqueue(frame)
	}
}

// sendTo queues a notification for a single member.
func (r *Room) sendTo(c *Client, t NoticeType, payload any) {
	if c == nil {
		return
	}

	frame, err := NewNotice(t, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("notice_type", string(t)).Msg("Failed to marshal notice.")
		return
	}

	c.enqueue(frame)
}

// truncateRunes limits s to at most n runes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
