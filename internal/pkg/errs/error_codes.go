/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in the error events sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Game Business Logic Errors
const (
	// ErrRoomNotFound indicates that the requested room code does not exist or has expired.
	ErrRoomNotFound = 2101

	// ErrRoomIsFull indicates that the room being joined has reached its player capacity.
	ErrRoomIsFull = 2102

	// ErrGameInProgress indicates an attempt to join a room whose game has already started.
	ErrGameInProgress = 2103

	// ErrNicknameTaken indicates that the chosen nickname is already used inside the room.
	ErrNicknameTaken = 2104

	// ErrNicknameInvalid indicates a missing or over-long nickname.
	ErrNicknameInvalid = 2105

	// ErrNotEnoughPlayers indicates a game start attempt with fewer than the minimum players.
	ErrNotEnoughPlayers = 2201

	// ErrNotHost indicates that a host-only action was attempted by a non-host player.
	ErrNotHost = 2202

	// ErrNotYourTurn indicates a chat message sent out of turn.
	ErrNotYourTurn = 2203

	// ErrWrongPhase indicates an action that is not valid in the room's current state.
	ErrWrongPhase = 2204

	// ErrAlreadyVoted indicates a second vote submission in the same voting phase.
	ErrAlreadyVoted = 2205

	// ErrNotJoined indicates a game event from a connection that has not joined a room.
	ErrNotJoined = 2206
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
