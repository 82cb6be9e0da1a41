package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomCodeShape(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := RoomCode()
		require.NoError(t, err)

		assert.Len(t, code, RoomCodeLength)
		for _, char := range code {
			assert.True(t, strings.ContainsRune(RoomCodeChars, char), "unexpected character %q in %q", char, code)
		}

		seen[code] = true
	}

	// 100 draws out of 32^6 codes colliding down to a handful would mean broken randomness
	assert.Greater(t, len(seen), 90)
}

func TestPlayerIDIsUnique(t *testing.T) {
	a := PlayerID()
	b := PlayerID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, "ABC234", NormalizeRoomCode("  abc234 "))
	assert.Equal(t, "ABC234", NormalizeRoomCode("ABC234"))
	assert.Equal(t, "", NormalizeRoomCode("   "))
}

func TestIsValidRoomCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "generated shape", code: "ABC234", want: true},
		{name: "too short", code: "ABC23", want: false},
		{name: "too long", code: "ABC2345", want: false},
		{name: "lowercase", code: "abc234", want: false},
		{name: "excluded look-alike O", code: "ABCO23", want: false},
		{name: "excluded look-alike 0", code: "ABC023", want: false},
		{name: "empty", code: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidRoomCode(tt.code))
		})
	}
}
