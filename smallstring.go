package wsock

// smallStringInline is the length at or below which a smallString stores its
// bytes inline instead of on the heap. 32 is comfortably above the longest
// subprotocol token seen in practice.
const smallStringInline = 32

type stringKind byte

const (
	kindNull stringKind = iota
	kindInline
	kindHeap
)

// smallString holds an optional short text value (a connection's URL or
// negotiated subprotocol): present-with-inline-storage, present-with-heap
// storage, or null. A null value is distinguishable from an empty one,
// which matters because "no subprotocol negotiated" is reported as null,
// not "". The three states are kept apart by a type switch over kind, a
// plain tag field rather than any byte-aliasing trick.
type smallString struct {
	kind stringKind
	n    byte
	buf  [smallStringInline]byte
	heap string
}

// nullString constructs the "no value" state.
func nullString() smallString {
	return smallString{kind: kindNull}
}

// newString constructs a present value from s, choosing inline or heap
// storage based on length.
func newString(s string) smallString {
	if len(s) <= smallStringInline {
		var ss smallString
		ss.kind = kindInline
		ss.n = byte(len(s))
		copy(ss.buf[:], s)
		return ss
	}
	return smallString{kind: kindHeap, heap: s}
}

// Get pattern-matches on the stored variant and returns (value, true) if a
// value is present, or ("", false) if the smallString is null.
func (s smallString) Get() (string, bool) {
	switch s.kind {
	case kindInline:
		return string(s.buf[:s.n]), true
	case kindHeap:
		return s.heap, true
	default:
		return "", false
	}
}

// Release is a documented no-op: Go's garbage collector reclaims the heap
// branch on its own.
func (s *smallString) Release() {}
