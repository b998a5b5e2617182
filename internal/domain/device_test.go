package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanNameTrimsAndClamps(t *testing.T) {
	assert.Equal(t, "alice", CleanName("  alice  "))
	assert.Equal(t, strings.Repeat("x", MaxNameLen), CleanName(strings.Repeat("x", 40)))
	assert.Equal(t, "", CleanName("   "))
}

func TestClampKeepsRuneBoundary(t *testing.T) {
	// 23 single-byte chars followed by a two-byte rune: a byte cut at 24
	// would split the rune.
	name := strings.Repeat("x", MaxNameLen-1) + "é"
	got := CleanName(name)
	assert.Equal(t, strings.Repeat("x", MaxNameLen-1), got)
	assert.True(t, utf8.ValidString(got))

	text := strings.Repeat("y", MaxTextLen-1) + "漢"
	got = CleanText(text)
	assert.Equal(t, strings.Repeat("y", MaxTextLen-1), got)
	assert.True(t, utf8.ValidString(got))

	dev := CleanDeviceID(strings.Repeat("z", MaxDeviceIDLen-1) + "ü")
	assert.Equal(t, strings.Repeat("z", MaxDeviceIDLen-1), string(dev))
	assert.True(t, utf8.ValidString(string(dev)))
}

func TestCleanTextClampsWhenAligned(t *testing.T) {
	// Multibyte content that fits exactly on the boundary is kept whole.
	text := strings.Repeat("é", MaxTextLen/2) // 2 bytes each
	got := CleanText(text)
	assert.Len(t, got, MaxTextLen)
	assert.True(t, utf8.ValidString(got))
}
