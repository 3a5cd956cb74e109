package checkin

import (
	"unicode"

	"github.com/iliyamo/eventdesk/internal/utils"
)

// ScanBuffer collects scanner keystrokes.  Once exactly
// utils.ScanCodeLength runes have accumulated the code is handed out a
// single time and the buffer starts over empty.  Control characters such
// as the trailing newline many scanners send are ignored.
//
// A ScanBuffer is not safe for concurrent use; each kiosk owns one.
type ScanBuffer struct {
	buf []rune
}

// Feed appends r.  It returns the completed code and true when r was the
// rune that filled the buffer.
func (b *ScanBuffer) Feed(r rune) (string, bool) {
	if unicode.IsControl(r) {
		return "", false
	}
	b.buf = append(b.buf, r)
	if len(b.buf) < utils.ScanCodeLength {
		return "", false
	}
	code := string(b.buf)
	b.buf = b.buf[:0]
	return code, true
}

// Pending returns the partial input collected so far.
func (b *ScanBuffer) Pending() string { return string(b.buf) }

// Len returns the number of buffered runes.
func (b *ScanBuffer) Len() int { return len(b.buf) }
