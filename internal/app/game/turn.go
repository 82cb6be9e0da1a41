package game

// advanceTurn applies the rotation rule over a fixed turn order: the next index is
// (current+1) mod orderLen, and wrapping back to slot 0 marks the start of a new round.
// It returns the next index and whether the rotation wrapped.
func advanceTurn(orderLen, current int) (next int, wrapped bool) {
	if orderLen <= 0 {
		return 0, false
	}

	next = (current + 1) % orderLen
	return next, next == 0
}
