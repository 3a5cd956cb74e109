package checkin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// feed feeds every rune of s and returns the codes completed along the way.
func feed(b *ScanBuffer, s string) []string {
	var codes []string
	for _, r := range s {
		if code, ok := b.Feed(r); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

func TestScanBufferFiresOnceAtSixteen(t *testing.T) {
	var b ScanBuffer
	code := "ABCDEF0123456789"

	for i, r := range code[:15] {
		got, ok := b.Feed(r)
		assert.False(t, ok, "fired early at rune %d", i)
		assert.Empty(t, got)
	}
	assert.Equal(t, 15, b.Len())

	got, ok := b.Feed(rune(code[15]))
	assert.True(t, ok)
	assert.Equal(t, code, got)
	assert.Zero(t, b.Len(), "buffer resets after firing")
	assert.Empty(t, b.Pending())
}

func TestScanBufferShortInputNeverFires(t *testing.T) {
	var b ScanBuffer
	assert.Empty(t, feed(&b, "SHORT"))
	assert.Equal(t, "SHORT", b.Pending())

	var fresh ScanBuffer
	assert.Empty(t, feed(&fresh, strings.Repeat("x", 15)))
	assert.Equal(t, 15, fresh.Len())
}

func TestScanBufferSplitsLongInput(t *testing.T) {
	var b ScanBuffer
	codes := feed(&b, "AAAAAAAAAAAAAAAABBBBBBBBBBBBBBBBCC")
	assert.Equal(t, []string{"AAAAAAAAAAAAAAAA", "BBBBBBBBBBBBBBBB"}, codes)
	assert.Equal(t, "CC", b.Pending())
}

func TestScanBufferIgnoresControlCharacters(t *testing.T) {
	var b ScanBuffer
	codes := feed(&b, "ABCDEFGH\r\n\tIJKLMNOP\n")
	assert.Equal(t, []string{"ABCDEFGHIJKLMNOP"}, codes)
	assert.Zero(t, b.Len())
}

func TestScanBufferCountsRunesNotBytes(t *testing.T) {
	var b ScanBuffer
	codes := feed(&b, strings.Repeat("é", 16))
	assert.Equal(t, []string{strings.Repeat("é", 16)}, codes)
}
