// Package checkin registers participants against an event's capacity.
//
// Two input channels feed the same registration path: manual entry of a
// ticket number and a ticket scanner whose keystrokes are collected by a
// ScanBuffer until a full code has arrived.  Both are admitted by the
// store's atomic capacity check, and Gate mirrors the outcome so clients
// can disable their submit control once the event is full.
package checkin

// Gate describes how full an event is.
type Gate struct {
	Capacity int `json:"capacity"`
	Count    int `json:"count"`
}

// Open reports whether another participant can be admitted.
func (g Gate) Open() bool {
	return g.Count < g.Capacity
}

// Remaining returns the number of free places, never negative.
func (g Gate) Remaining() int {
	if g.Count >= g.Capacity {
		return 0
	}
	return g.Capacity - g.Count
}
