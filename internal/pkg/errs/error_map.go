/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and WebSocket error events.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error
// code. The key is the error code (int), and the value holds the user message and, where it
// differs from 200, the HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Game Business Logic Errors
	ErrRoomNotFound:     {Code: ErrRoomNotFound, Message: "Room code %q was not found. It may have expired.", Status: http.StatusNotFound},
	ErrRoomIsFull:       {Code: ErrRoomIsFull, Message: "This room is full (max %d players)."},
	ErrGameInProgress:   {Code: ErrGameInProgress, Message: "The game in this room has already started."},
	ErrNicknameTaken:    {Code: ErrNicknameTaken, Message: "The nickname %q is already taken."},
	ErrNicknameInvalid:  {Code: ErrNicknameInvalid, Message: "Nickname is missing or too long."},
	ErrNotEnoughPlayers: {Code: ErrNotEnoughPlayers, Message: "At least %d players are required."},
	ErrNotHost:          {Code: ErrNotHost, Message: "Only the host can do that."},
	ErrNotYourTurn:      {Code: ErrNotYourTurn, Message: "It is not your turn."},
	ErrWrongPhase:       {Code: ErrWrongPhase, Message: "That action is not available right now."},
	ErrAlreadyVoted:     {Code: ErrAlreadyVoted, Message: "You have already voted."},
	ErrNotJoined:        {Code: ErrNotJoined, Message: "Join a room first."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
