/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is primarily used to generate short uppercase room codes and UUID player ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// RoomCodeChars defines the character set used for room codes. Uppercase letters and
	// digits only, with easily confused characters (0/O, 1/I) removed so the codes stay
	// human-typable.
	RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// RoomCodeLength is the fixed length of generated room codes.
	RoomCodeLength = 6
)

var roomCodeCharsLen = big.NewInt(int64(len(RoomCodeChars)))

// RoomCode generates an uppercase room code using crypto/rand.
// It returns a string of length RoomCodeLength and any error encountered.
func RoomCode() (string, error) {
	result := make([]byte, RoomCodeLength)

	for i := 0; i < RoomCodeLength; i++ {
		num, err := rand.Int(rand.Reader, roomCodeCharsLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room code: %v", err)
		}

		result[i] = RoomCodeChars[num.Int64()]
	}

	return string(result), nil
}

// PlayerID generates a UUID v4 string serving as the opaque per-connection player identity.
func PlayerID() string {
	return uuid.New().String()
}

// NormalizeRoomCode trims whitespace and uppercases the given code, the canonical
// form used as the registry key. Lookups are case-insensitive by normalizing first.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidRoomCode checks whether the given string could be a generated room code:
// correct length and every character drawn from RoomCodeChars.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(RoomCodeChars, char) {
			return false
		}
	}

	return true
}
