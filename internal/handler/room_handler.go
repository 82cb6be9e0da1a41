/*
Package handler provides HTTP handler functions for room creation and status checks,
the request/response side channel next to the WebSocket event stream.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"liargame/internal/pkg/errs"
	"liargame/internal/pkg/randx"
	"liargame/internal/pkg/req"
	"liargame/internal/pkg/resp"
)

// createRoomRequest is the optional body of a room creation request. Supplying a
// code re-establishes that exact room, which is how a host recovers a room the
// registry no longer remembers. No prior game progress comes back with it.
type createRoomRequest struct {
	RoomID string `json:"roomId"`
}

// HandleCreateRoom creates a room and returns its code. With no body a fresh code
// is generated; the creator joins over the WebSocket afterwards like everyone else.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRoomRequest
		if r.ContentLength != 0 {
			if bindErr := req.BindJSON(r, &body); bindErr != nil {
				resp.RespondError(w, r, bindErr)
				return
			}
		}

		if body.RoomID != "" {
			code := randx.NormalizeRoomCode(body.RoomID)
			if !randx.IsValidRoomCode(code) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}

			deps.Registry.GetOrCreate(code, true)
			resp.RespondSuccess(w, r, map[string]any{
				"roomId": code,
			})
			return
		}

		code, err := deps.Registry.Create()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId": code,
		})
	}
}

// HandleRoomStatus reports whether a room exists before a client commits to
// joining. Not-found is a distinct 404 outcome, never an empty success.
func HandleRoomStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := randx.NormalizeRoomCode(chi.URLParam(r, "roomId"))
		if !randx.IsValidRoomCode(code) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound, code))
			return
		}

		room := deps.Registry.Lookup(code)
		if room == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound, code))
			return
		}

		status, ok := room.Status()
		if !ok {
			// the room's loop is gone; it is being torn down
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound, code))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"exists":      true,
			"playerCount": status.PlayerCount,
			"state":       status.State,
		})
	}
}
