package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liargame/internal/configs"
	"liargame/internal/pkg/randx"
)

func testRegistryConfig() *configs.AppConfig {
	return &configs.AppConfig{
		VoteTimeLimit: time.Minute,
		SweepInterval: time.Hour,
		RoomTTL:       time.Hour,
	}
}

func TestRegistryCreateAndLookup(t *testing.T) {
	g := NewRegistry(testRegistryConfig())
	defer g.Shutdown()

	code, err := g.Create()
	require.NoError(t, err)
	assert.True(t, randx.IsValidRoomCode(code))

	room := g.Lookup(code)
	require.NotNil(t, room)
	assert.Equal(t, code, room.Code)
	assert.Equal(t, 1, g.Count())

	status, ok := room.Status()
	require.True(t, ok)
	assert.Equal(t, 0, status.PlayerCount)
	assert.Equal(t, StateLobby, status.State)
}

func TestRegistryLookupMiss(t *testing.T) {
	g := NewRegistry(testRegistryConfig())
	defer g.Shutdown()

	assert.Nil(t, g.Lookup("ZZZZZZ"))
}

func TestRegistryGetOrCreate(t *testing.T) {
	g := NewRegistry(testRegistryConfig())
	defer g.Shutdown()

	assert.Nil(t, g.GetOrCreate("AAAAAA", false), "lookup-only must not create")
	assert.Equal(t, 0, g.Count())

	created := g.GetOrCreate("AAAAAA", true)
	require.NotNil(t, created)
	assert.Equal(t, "AAAAAA", created.Code)

	// a second call resolves to the very same room
	again := g.GetOrCreate("AAAAAA", true)
	assert.Same(t, created, again)
	assert.Equal(t, 1, g.Count())
}

func TestRegistryRemove(t *testing.T) {
	g := NewRegistry(testRegistryConfig())
	defer g.Shutdown()

	code, err := g.Create()
	require.NoError(t, err)
	room := g.Lookup(code)
	require.NotNil(t, room)

	g.Remove(code)

	assert.Nil(t, g.Lookup(code))
	assert.Equal(t, 0, g.Count())

	_, ok := room.Status()
	assert.False(t, ok, "a removed room must not answer status probes")

	// removing an absent code is a no-op
	g.Remove(code)
}

func TestRegistrySweepExpired(t *testing.T) {
	g := NewRegistry(testRegistryConfig())
	defer g.Shutdown()

	stale := g.GetOrCreate("OLDEST", true)
	require.NotNil(t, stale)
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)

	fresh := g.GetOrCreate("NEWEST", true)
	require.NotNil(t, fresh)

	g.sweepExpired(time.Hour)

	assert.Nil(t, g.Lookup("OLDEST"))
	assert.NotNil(t, g.Lookup("NEWEST"))
	assert.Equal(t, 1, g.Count())
}

func TestRegistryShutdownStopsRooms(t *testing.T) {
	g := NewRegistry(testRegistryConfig())

	code, err := g.Create()
	require.NoError(t, err)
	room := g.Lookup(code)
	require.NotNil(t, room)

	g.Shutdown()

	assert.Equal(t, 0, g.Count())
	_, ok := room.Status()
	assert.False(t, ok)
}

// awaitFrame blocks until the client receives a frame of the given type,
// discarding everything else, with a hard timeout.
func awaitFrame(t *testing.T, c *Client, typ NoticeType) frame {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw, ok := <-c.send:
			require.True(t, ok, "send channel closed while waiting for %s", typ)
			var f frame
			require.NoError(t, json.Unmarshal(raw, &f))
			if f.Type == typ {
				return f
			}

		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// TestRoomLifecycleThroughLoop drives a full session against the real Run loop:
// create, join, start, vote to resolution, everyone leaves, registry cleans up.
func TestRoomLifecycleThroughLoop(t *testing.T) {
	g := NewRegistry(testRegistryConfig())
	defer g.Shutdown()

	room := g.GetOrCreate("LIVEST", true)
	require.NotNil(t, room)

	clients := []*Client{
		newTestClient("live-0"),
		newTestClient("live-1"),
		newTestClient("live-2"),
	}

	for i, c := range clients {
		room.deliver(c, EventJoin, mustMarshal(t, JoinPayload{
			RoomID:   room.Code,
			Nickname: []string{"amy", "ben", "cleo"}[i],
		}))

		joined := decode[JoinedPayload](t, awaitFrame(t, c, NoticeJoined))
		assert.Equal(t, "LIVEST", joined.RoomCode)
		assert.Equal(t, i == 0, joined.IsHost)
	}

	room.deliver(clients[0], EventStartGame, nil)

	liarSeen := 0
	for _, c := range clients {
		deal := decode[GameStartedPayload](t, awaitFrame(t, c, NoticeGameStarted))
		if deal.Word == nil {
			liarSeen++
			assert.True(t, deal.IsLiar)
		}
	}
	assert.Equal(t, 1, liarSeen)

	room.deliver(clients[1], EventCallVote, mustMarshal(t, RoomPayload{RoomID: room.Code}))
	started := decode[VotingStartedPayload](t, awaitFrame(t, clients[0], NoticeVotingStarted))
	assert.Equal(t, 60, started.TimeLimit)

	for _, c := range clients {
		room.deliver(c, EventSubmitVote, mustMarshal(t, VotePayload{
			RoomID:   room.Code,
			TargetID: clients[2].playerID,
		}))
	}

	result := decode[VoteResultPayload](t, awaitFrame(t, clients[0], NoticeVoteResult))
	require.NotNil(t, result.Eliminated)
	assert.Equal(t, clients[2].playerID, result.Eliminated.ID)
	assert.False(t, result.Tied)

	for _, c := range clients {
		room.notifyLeave(c)
	}

	// the emptied room shuts down and the registry drops it
	require.Eventually(t, func() bool {
		return g.Lookup("LIVEST") == nil
	}, 2*time.Second, 10*time.Millisecond)
}
