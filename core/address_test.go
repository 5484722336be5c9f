package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	const hex = "00000000000000000000000000000000000000ab"

	a, err := ParseAddress("0x" + hex)
	require.NoError(t, err)
	assert.Equal(t, "0x"+hex, a.String())

	// Prefix optional, case ignored.
	b, err := ParseAddress("00000000000000000000000000000000000000AB")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	for _, bad := range []string{"", "0x", "0xzz", "0x1234", "not hex at all"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, "input %q", bad)
	}
	assert.Equal(t, ZeroAddress, AddressFromString("garbage"))
}

func TestExamWindow(t *testing.T) {
	start := time.Now().Unix()
	e := Exam{StartTime: start, Duration: 3600}

	assert.Equal(t, start+3600, e.EndTime())
	assert.False(t, e.Ended(time.Unix(start+3599, 0)))
	assert.True(t, e.Ended(time.Unix(start+3600, 0)))
	assert.Equal(t, int64(100), e.Remaining(time.Unix(start+3500, 0)))
	assert.Zero(t, e.Remaining(time.Unix(start+9999, 0)))
}

func TestProfileRegistered(t *testing.T) {
	assert.False(t, UserProfile{}.Registered())
	assert.True(t, UserProfile{Name: "Ada"}.Registered())
}
