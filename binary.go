package wsock

import "encoding/binary"

// Big-endian integer codecs for the frame codec's extended payload-length
// fields. Thin, inlineable wrappers kept as named call sites so frame.go
// reads the same as the RFC 6455 field names rather than raw slice math.

func putUint16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func getUint16(b []byte) uint16    { return binary.BigEndian.Uint16(b) }

func putUint64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func getUint64(b []byte) uint64    { return binary.BigEndian.Uint64(b) }
