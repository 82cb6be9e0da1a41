package game

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liargame/internal/pkg/errs"
)

// frame mirrors the outbound envelope with the payload left raw for per-test decoding.
type frame struct {
	Type    NoticeType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestClient(id string) *Client {
	return &Client{
		playerID: id,
		send:     make(chan []byte, 256),
		logger:   zerolog.Nop(),
	}
}

func newTestRoom() *Room {
	return newRoom("TESTRM", time.Minute, make(chan roomCleanupMsg, 1))
}

// drainFrames empties a client's queued notifications without blocking.
func drainFrames(t *testing.T, c *Client) []frame {
	t.Helper()

	var frames []frame
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return frames
			}
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func framesOfType(frames []frame, typ NoticeType) []frame {
	var out []frame
	for _, f := range frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func decode[T any](t *testing.T, f frame) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(f.Payload, &v))
	return v
}

// requireSingle asserts a client received exactly one frame of the given type and decodes it.
func requireSingle[T any](t *testing.T, frames []frame, typ NoticeType) T {
	t.Helper()

	matches := framesOfType(frames, typ)
	require.Len(t, matches, 1, "expected exactly one %s frame", typ)
	return decode[T](t, matches[0])
}

func requireErrorFrame(t *testing.T, c *Client, code int) {
	t.Helper()

	p := requireSingle[ErrorPayload](t, drainFrames(t, c), NoticeError)
	assert.Equal(t, code, p.Code)
}

// newLobby creates a room with n joined players (clients[0] is host) and drains
// the join chatter so tests start from quiet queues.
func newLobby(t *testing.T, n int) (*Room, []*Client) {
	t.Helper()

	r := newTestRoom()

	clients := make([]*Client, n)
	for i := 0; i < n; i++ {
		c := newTestClient(fmt.Sprintf("id-%d", i))
		r.handleJoin(c, JoinPayload{RoomID: r.Code, Nickname: fmt.Sprintf("player%d", i)})
		clients[i] = c
	}

	require.Len(t, r.players, n)
	for _, c := range clients {
		drainFrames(t, c)
	}

	return r, clients
}

// startedGame starts the game and returns the dealt payloads keyed by player id.
func startedGame(t *testing.T, r *Room, clients []*Client) map[string]GameStartedPayload {
	t.Helper()

	r.handleStartGame(clients[0])
	require.Equal(t, StatePlaying, r.state)

	deals := make(map[string]GameStartedPayload, len(clients))
	for _, c := range clients {
		deals[c.playerID] = requireSingle[GameStartedPayload](t, drainFrames(t, c), NoticeGameStarted)
	}
	return deals
}

func clientByID(clients []*Client, id string) *Client {
	for _, c := range clients {
		if c.playerID == id {
			return c
		}
	}
	return nil
}

func TestJoinRosterAndHost(t *testing.T) {
	r := newTestRoom()

	first := newTestClient("first")
	r.handleJoin(first, JoinPayload{RoomID: r.Code, Nickname: "alice", Avatar: "cat"})

	joined := requireSingle[JoinedPayload](t, drainFrames(t, first), NoticeJoined)
	assert.Equal(t, "TESTRM", joined.RoomCode)
	assert.True(t, joined.IsHost)

	second := newTestClient("second")
	r.handleJoin(second, JoinPayload{RoomID: r.Code, Nickname: "bob"})

	joined = requireSingle[JoinedPayload](t, drainFrames(t, second), NoticeJoined)
	assert.False(t, joined.IsHost)

	update := requireSingle[RoomUpdatePayload](t, drainFrames(t, first), NoticeRoomUpdate)
	assert.Equal(t, "first", update.Host)
	assert.Equal(t, StateLobby, update.State)

	require.Len(t, update.Players, 2)
	assert.Equal(t, "alice", update.Players[0].Nickname)
	assert.Equal(t, "cat", update.Players[0].Avatar)
	assert.Equal(t, "bob", update.Players[1].Nickname)
}

func TestJoinCapacity(t *testing.T) {
	r, _ := newLobby(t, MaxPlayers)

	extra := newTestClient("id-extra")
	r.handleJoin(extra, JoinPayload{RoomID: r.Code, Nickname: "latecomer"})

	requireErrorFrame(t, extra, errs.ErrRoomIsFull)
	assert.Len(t, r.players, MaxPlayers)
	assert.Nil(t, extra.Room())
}

func TestJoinDuplicateNicknameRejected(t *testing.T) {
	r, _ := newLobby(t, 2)

	dupe := newTestClient("id-dupe")
	r.handleJoin(dupe, JoinPayload{RoomID: r.Code, Nickname: "player1"})

	requireErrorFrame(t, dupe, errs.ErrNicknameTaken)
	assert.Len(t, r.players, 2)
}

func TestJoinRejectedOncePlaying(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)

	late := newTestClient("id-late")
	r.handleJoin(late, JoinPayload{RoomID: r.Code, Nickname: "late"})

	requireErrorFrame(t, late, errs.ErrGameInProgress)
	assert.Len(t, r.players, 3)
}

func TestStartGameAuthorization(t *testing.T) {
	r, clients := newLobby(t, 3)

	r.handleStartGame(clients[1])
	requireErrorFrame(t, clients[1], errs.ErrNotHost)
	assert.Equal(t, StateLobby, r.state)

	small, smallClients := newLobby(t, 2)
	small.handleStartGame(smallClients[0])
	requireErrorFrame(t, smallClients[0], errs.ErrNotEnoughPlayers)
	assert.Equal(t, StateLobby, small.state)
}

func TestStartGameDealsExactlyOneLiar(t *testing.T) {
	r, clients := newLobby(t, 5)
	deals := startedGame(t, r, clients)

	playerIDs := make([]string, len(clients))
	for i, c := range clients {
		playerIDs[i] = c.playerID
	}

	liarCount := 0
	var sharedWord string
	for id, deal := range deals {
		if deal.Word == nil {
			liarCount++
			assert.True(t, deal.IsLiar)
			assert.Equal(t, r.liarID, id)
		} else {
			assert.False(t, deal.IsLiar)
			if sharedWord == "" {
				sharedWord = *deal.Word
			}
			assert.Equal(t, sharedWord, *deal.Word, "non-liars must share the same word")
			assert.NotEmpty(t, *deal.Word)
		}

		assert.Equal(t, r.topic.Category, deal.Category)
		assert.Equal(t, r.turnOrder[0], deal.CurrentTurnPlayerID)

		orderIDs := make([]string, len(deal.TurnOrder))
		for i, entry := range deal.TurnOrder {
			orderIDs[i] = entry.ID
		}
		assert.ElementsMatch(t, playerIDs, orderIDs)
	}

	assert.Equal(t, 1, liarCount)
	assert.Contains(t, playerIDs, r.liarID)
	assert.ElementsMatch(t, playerIDs, r.turnOrder)
	assert.Equal(t, 1, r.round)
	assert.Equal(t, 0, r.currentTurn)
}

func TestChatTurnRotation(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)

	outOfTurn := clientByID(clients, r.turnOrder[1])
	r.handleChat(outOfTurn, "not my turn yet")
	requireErrorFrame(t, outOfTurn, errs.ErrNotYourTurn)
	assert.Empty(t, r.chat)

	// one full cycle in turn order
	for i, id := range r.turnOrder {
		current := clientByID(clients, id)
		r.handleChat(current, fmt.Sprintf("hint %d", i))

		frames := drainFrames(t, current)

		msg := requireSingle[ChatMessagePayload](t, frames, NoticeChatMessage)
		assert.Equal(t, id, msg.PlayerID)
		assert.Equal(t, fmt.Sprintf("hint %d", i), msg.Message)
		assert.NotZero(t, msg.Timestamp)

		turn := requireSingle[TurnChangedPayload](t, frames, NoticeTurnChanged)
		assert.Equal(t, r.turnOrder[(i+1)%len(r.turnOrder)], turn.CurrentTurnPlayerID)
	}

	// the wrap back to slot 0 started round 2
	assert.Equal(t, 2, r.round)
	assert.Equal(t, 0, r.currentTurn)
	assert.Len(t, r.chat, 3)
}

func TestChatTruncation(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)

	current := clientByID(clients, r.turnOrder[0])

	long := ""
	for i := 0; i < maxChatRunes+50; i++ {
		long += "글"
	}

	r.handleChat(current, long)

	msg := requireSingle[ChatMessagePayload](t, drainFrames(t, current), NoticeChatMessage)
	assert.Len(t, []rune(msg.Message), maxChatRunes)
}

func TestVoteQuorumResolvesImmediately(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)

	r.handleCallVote(clients[1])
	assert.Equal(t, StateVoting, r.state)

	started := requireSingle[VotingStartedPayload](t, drainFrames(t, clients[0]), NoticeVotingStarted)
	assert.Equal(t, 60, started.TimeLimit)

	target := clients[1].playerID
	other := clients[2].playerID

	r.handleSubmitVote(clients[0], target)
	update := requireSingle[VoteUpdatePayload](t, drainFrames(t, clients[0]), NoticeVoteUpdate)
	assert.Equal(t, 1, update.VoteCount)
	assert.Equal(t, 3, update.TotalPlayers)

	r.handleSubmitVote(clients[1], other)
	drainFrames(t, clients[0])

	r.handleSubmitVote(clients[2], target)

	require.Equal(t, StateResult, r.state)
	assert.Nil(t, r.vt.timer, "quorum resolution must disarm the deadline")

	frames := drainFrames(t, clients[0])
	result := requireSingle[VoteResultPayload](t, frames, NoticeVoteResult)

	require.NotNil(t, result.Eliminated)
	assert.Equal(t, target, result.Eliminated.ID)
	assert.False(t, result.Tied)
	assert.Equal(t, target == r.liarID, result.IsLiar)
	require.NotNil(t, result.Liar)
	assert.Equal(t, r.liarID, result.Liar.ID)
	require.NotNil(t, result.Topic)
	assert.Equal(t, map[string]int{target: 2, other: 1}, result.Tally)
	assert.Len(t, result.Votes, 3)
}

func TestDuplicateVoteIgnored(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])
	drainFrames(t, clients[0])

	first := clients[1].playerID
	second := clients[2].playerID

	r.handleSubmitVote(clients[0], first)
	drainFrames(t, clients[0])

	r.handleSubmitVote(clients[0], second)

	requireErrorFrame(t, clients[0], errs.ErrAlreadyVoted)
	assert.Equal(t, map[string]string{clients[0].playerID: first}, r.votes)
	assert.Equal(t, StateVoting, r.state)
}

func TestVoteTieEliminatesNoOne(t *testing.T) {
	r, clients := newLobby(t, 4)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])

	a := clients[0].playerID
	b := clients[1].playerID

	r.handleSubmitVote(clients[0], b)
	r.handleSubmitVote(clients[1], a)
	r.handleSubmitVote(clients[2], b)
	r.handleSubmitVote(clients[3], a)

	require.Equal(t, StateResult, r.state)

	result := requireSingle[VoteResultPayload](t, drainFrames(t, clients[2]), NoticeVoteResult)
	assert.Nil(t, result.Eliminated)
	assert.True(t, result.Tied)
	assert.False(t, result.IsLiar)
	assert.Equal(t, map[string]int{a: 2, b: 2}, result.Tally)
}

func TestVoteUnknownTargetRejected(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])
	drainFrames(t, clients[0])

	r.handleSubmitVote(clients[0], "nobody-by-this-id")

	requireErrorFrame(t, clients[0], errs.ErrInvalidParams)
	assert.Empty(t, r.votes)
}

func TestQuorumRecheckAfterDisconnect(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])

	a := clients[0].playerID
	b := clients[1].playerID

	// a 1-1 tie between the two voters; the third player never votes and leaves
	r.handleSubmitVote(clients[0], b)
	r.handleSubmitVote(clients[1], a)
	require.Equal(t, StateVoting, r.state)

	r.handleLeave(clients[2])

	require.Equal(t, StateResult, r.state)

	result := requireSingle[VoteResultPayload](t, drainFrames(t, clients[0]), NoticeVoteResult)
	assert.Nil(t, result.Eliminated)
	assert.True(t, result.Tied)
	assert.Equal(t, map[string]int{a: 1, b: 1}, result.Tally)
}

func TestVoteDeadlineWithNoVotes(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])
	drainFrames(t, clients[1])

	r.handleVoteDeadline(r.vt.epoch)

	require.Equal(t, StateResult, r.state)

	result := requireSingle[VoteResultPayload](t, drainFrames(t, clients[1]), NoticeVoteResult)
	assert.Nil(t, result.Eliminated)
	assert.False(t, result.Tied)
	assert.Empty(t, result.Tally)
	require.NotNil(t, result.Liar)
	assert.Equal(t, r.liarID, result.Liar.ID)
}

func TestStaleDeadlineIsNoOp(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])

	preQuorumEpoch := r.vt.epoch

	target := clients[0].playerID
	for _, c := range clients {
		r.handleSubmitVote(c, target)
	}
	require.Equal(t, StateResult, r.state)
	drainFrames(t, clients[1])

	// the deadline of the already-resolved phase fires late
	r.handleVoteDeadline(preQuorumEpoch)

	assert.Equal(t, StateResult, r.state)
	assert.Empty(t, framesOfType(drainFrames(t, clients[1]), NoticeVoteResult),
		"a stale deadline must not resolve voting a second time")
}

func TestHostMigrationOnDisconnect(t *testing.T) {
	r, clients := newLobby(t, 3)

	r.handleLeave(clients[0])

	assert.Equal(t, clients[1].playerID, r.hostID, "earliest-joined remaining player becomes host")
	require.Len(t, r.players, 2)

	promoted := drainFrames(t, clients[1])
	assert.Len(t, framesOfType(promoted, NoticeBecameHost), 1)

	left := requireSingle[PlayerLeftPayload](t, promoted, NoticePlayerLeft)
	assert.Equal(t, clients[0].playerID, left.PlayerID)
	assert.Equal(t, "player0", left.Nickname)

	update := requireSingle[RoomUpdatePayload](t, promoted, NoticeRoomUpdate)
	assert.Equal(t, clients[1].playerID, update.Host)

	// the non-promoted member sees the departure but no became_host
	observer := drainFrames(t, clients[2])
	assert.Empty(t, framesOfType(observer, NoticeBecameHost))
	assert.Len(t, framesOfType(observer, NoticePlayerLeft), 1)
}

func TestDisconnectOfCurrentTurnSkipsSlot(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)

	leaving := clientByID(clients, r.turnOrder[0])
	expectedNext := r.turnOrder[1]

	r.handleLeave(leaving)

	// turn order is snapshotted at game start and never recomputed
	assert.Len(t, r.turnOrder, 3)
	assert.Equal(t, expectedNext, r.turnOrder[r.currentTurn])

	var witness *Client
	for _, c := range clients {
		if c != leaving {
			witness = c
			break
		}
	}

	turn := requireSingle[TurnChangedPayload](t, drainFrames(t, witness), NoticeTurnChanged)
	assert.Equal(t, expectedNext, turn.CurrentTurnPlayerID)

	// subsequent chats rotate over the two remaining players, skipping the dead slot
	for i := 0; i < 4; i++ {
		current := clientByID(clients, r.turnOrder[r.currentTurn])
		require.NotNil(t, current)
		require.NotEqual(t, leaving.playerID, current.playerID)

		r.handleChat(current, fmt.Sprintf("round trip %d", i))
	}
}

func TestReturnToLobbyResets(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])
	drainFrames(t, clients[1])

	r.handleReturnToLobby(clients[0])

	assert.Equal(t, StateLobby, r.state)
	assert.Nil(t, r.topic)
	assert.Empty(t, r.liarID)
	assert.Nil(t, r.turnOrder)
	assert.Empty(t, r.votes)
	assert.Empty(t, r.chat)
	assert.Equal(t, 1, r.round)
	assert.Nil(t, r.vt.timer, "return to lobby must cancel the pending deadline")

	frames := drainFrames(t, clients[1])
	assert.Len(t, framesOfType(frames, NoticeReturnedToLobby), 1)

	update := requireSingle[RoomUpdatePayload](t, frames, NoticeRoomUpdate)
	assert.Equal(t, StateLobby, update.State)
	assert.Empty(t, update.CurrentTurnPlayerID)
}

func TestNextTurnResumesSameGame(t *testing.T) {
	r, clients := newLobby(t, 3)
	startedGame(t, r, clients)
	r.handleCallVote(clients[0])
	r.handleVoteDeadline(r.vt.epoch)
	require.Equal(t, StateResult, r.state)

	liarBefore := r.liarID
	topicBefore := *r.topic
	orderBefore := append([]string(nil), r.turnOrder...)
	drainFrames(t, clients[1])

	r.handleNextTurn(clients[1])
	requireErrorFrame(t, clients[1], errs.ErrNotHost)
	assert.Equal(t, StateResult, r.state)

	r.handleNextTurn(clients[0])

	assert.Equal(t, StatePlaying, r.state)
	assert.Equal(t, liarBefore, r.liarID)
	assert.Equal(t, topicBefore, *r.topic)
	assert.Equal(t, orderBefore, r.turnOrder)

	update := requireSingle[RoomUpdatePayload](t, drainFrames(t, clients[1]), NoticeRoomUpdate)
	assert.Equal(t, StatePlaying, update.State)
	assert.Equal(t, r.turnOrder[r.currentTurn], update.CurrentTurnPlayerID)
}

func TestEventFromNonMemberRejected(t *testing.T) {
	r, _ := newLobby(t, 3)

	stranger := newTestClient("id-stranger")
	r.dispatch(inboundEvent{client: stranger, typ: EventStartGame})

	requireErrorFrame(t, stranger, errs.ErrNotJoined)
}
