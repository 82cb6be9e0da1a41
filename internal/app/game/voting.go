/*
Package game contains the core logic for the liar game.

This file implements the vote-deadline timer. Each room owns exactly one voteTimer;
all of its methods are called from the room's Run goroutine only, and expirations are
delivered back into that same goroutine through the fired channel. An expiration
carries the epoch it was armed under, so a firing that lost the race against quorum
resolution or a phase change is detected as stale and ignored.
*/
package game

import "time"

// voteExpiry is delivered into the room loop when an armed deadline elapses.
type voteExpiry struct {
	epoch uint64
}

// voteTimer guards the invariant of at most one live vote deadline per room,
// with exactly-once resolution between the deadline and manual (quorum) resolution.
type voteTimer struct {
	// epoch increments on every Arm and Disarm. Only an expiry matching the
	// current epoch is acted upon.
	epoch uint64

	timer *time.Timer

	// fired receives expirations; buffered so the AfterFunc callback never blocks.
	fired chan voteExpiry
}

func newVoteTimer() *voteTimer {
	return &voteTimer{
		fired: make(chan voteExpiry, 1),
	}
}

// Arm schedules a deadline d from now, replacing any previously armed one,
// and returns the epoch the new deadline belongs to.
func (t *voteTimer) Arm(d time.Duration) uint64 {
	t.Disarm()

	t.epoch++
	epoch := t.epoch

	t.timer = time.AfterFunc(d, func() {
		select {
		case t.fired <- voteExpiry{epoch: epoch}:
		default:
			// a previous expiry is still queued; it will fail the epoch check anyway
		}
	})

	return epoch
}

// Disarm cancels any pending deadline and invalidates expirations already in flight.
// Stopping the timer alone is not enough: the callback may have fired and queued an
// expiry before Stop, so the epoch bump is what guarantees it becomes a no-op.
func (t *voteTimer) Disarm() {
	t.epoch++

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Stale reports whether an expiry belongs to a voting phase that is no longer live.
func (t *voteTimer) Stale(epoch uint64) bool {
	return epoch != t.epoch
}
