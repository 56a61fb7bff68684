package wsock

import (
	"bufio"
	"io"
	"net"
	"time"
)

// transport binds the byte-stream contract to a net.Conn: a buffered
// reader for recv-until/fixed-size reads, a buffered writer for
// send/flush, and deadline-aware wrappers around both. It is the one place
// in this package that talks to the network directly; everything else
// (handshake, frame codec, Conn) goes through it.
type transport struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
}

const transportBufSize = 4096

func newTransport(conn net.Conn) *transport {
	return &transport{
		conn: conn,
		br:   bufio.NewReaderSize(conn, transportBufSize),
		bw:   bufio.NewWriterSize(conn, transportBufSize),
	}
}

// A zero deadline means "no deadline", matching net.Conn's own zero-Time
// convention; callers pass time.Time{} for "infinite".
func (t *transport) setReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

func (t *transport) setWriteDeadline(deadline time.Time) error {
	return t.conn.SetWriteDeadline(deadline)
}

// send writes buf in full, buffered, without flushing.
func (t *transport) send(buf []byte, deadline time.Time) error {
	if err := t.setWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := t.bw.Write(buf)
	return err
}

// flush pushes any buffered output to the wire.
func (t *transport) flush(deadline time.Time) error {
	if err := t.setWriteDeadline(deadline); err != nil {
		return err
	}
	return t.bw.Flush()
}

// recv blocks until exactly len(buf) bytes have been read, or failure.
func (t *transport) recv(buf []byte, deadline time.Time) error {
	if err := t.setReadDeadline(deadline); err != nil {
		return err
	}
	_, err := io.ReadFull(t.br, buf)
	return err
}

// drain reads and discards exactly n bytes.
func (t *transport) drain(n int, deadline time.Time) error {
	if n <= 0 {
		return nil
	}
	if err := t.setReadDeadline(deadline); err != nil {
		return err
	}
	_, err := io.CopyN(io.Discard, t.br, int64(n))
	return err
}

func (t *transport) close() error {
	return t.conn.Close()
}
