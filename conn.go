package wsock

import (
	"crypto/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type role uint8

const (
	roleServer role = iota
	roleClient
)

const (
	flagBroken   uint32 = 1 << 0
	flagDoneSent uint32 = 1 << 1
)

// defaultMaxMessageSize bounds how large a single Recv's declared frame
// payload length may be before this package refuses to trust it and returns
// KindNoMem, since a reader that allocates per the wire's own 64-bit length
// field needs an upper bound independent of the caller's buffer size.
const defaultMaxMessageSize = 64 << 20

// Conn is an established WebSocket connection: the opening handshake has
// completed and the connection is in the "open" lifecycle state, or has
// since transitioned to "done-sent" or "broken".
//
// A Conn is not safe for concurrent use by more than one goroutine calling
// the *same* method concurrently, but one goroutine may use the send-side
// (Send/Ping/Pong/Done) while another uses the recv-side (Recv) — frame
// writes, including the pong and close replies Recv sends on its own, are
// serialized by a mutex, and the stage bitfield is only ever mutated via
// compare-and-swap.
type Conn struct {
	t    *transport
	role role
	wmu  sync.Mutex

	stage  atomic.Uint32
	closed atomic.Bool

	url            smallString
	subprotocol    smallString
	maxMessageSize int
	log            zerolog.Logger
}

func newConn(t *transport, r role, url, subprotocol smallString, opts options) *Conn {
	c := &Conn{
		t:              t,
		role:           r,
		url:            url,
		subprotocol:    subprotocol,
		maxMessageSize: opts.maxMessageSize,
		log:            opts.logger,
	}
	if c.maxMessageSize <= 0 {
		c.maxMessageSize = defaultMaxMessageSize
	}
	return c
}

func (c *Conn) isBroken() bool   { return c.stage.Load()&flagBroken != 0 }
func (c *Conn) isDoneSent() bool { return c.stage.Load()&flagDoneSent != 0 }

func (c *Conn) orFlag(bit uint32) {
	for {
		old := c.stage.Load()
		if old&bit != 0 {
			return
		}
		if c.stage.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

func (c *Conn) setBroken()           { c.orFlag(flagBroken) }
func (c *Conn) setDoneSent()         { c.orFlag(flagDoneSent) }
func (c *Conn) setBrokenAndDoneSent() {
	for {
		old := c.stage.Load()
		want := old | flagBroken | flagDoneSent
		if old == want {
			return
		}
		if c.stage.CompareAndSwap(old, want) {
			return
		}
	}
}

func (c *Conn) checkOpen(op string) error {
	if c.isBroken() {
		return newErr(op, KindConnAborted, nil)
	}
	return nil
}

func (c *Conn) checkControl(op string) error {
	if c.isBroken() || c.isDoneSent() {
		return newErr(op, KindConnAborted, nil)
	}
	return nil
}

// URL returns the connection's URL (the server's request-URI, or the
// client's dial target), or ("", false) if none was recorded.
func (c *Conn) URL() (string, bool) { return c.url.Get() }

// Subprotocol returns the negotiated subprotocol, or ("", false) if the
// handshake negotiated none.
func (c *Conn) Subprotocol() (string, bool) { return c.subprotocol.Get() }

// sendFrame writes one complete frame (header, mask key if this side
// masks, and payload) and flushes. It does not touch the stage bitfield;
// callers mark the connection broken on error. It holds c.wmu for the whole
// frame so frames written from different goroutines never interleave.
func (c *Conn) sendFrame(op opcode, payload []byte, deadline time.Time) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	masked := c.role == roleClient
	header := encodeFrameHeader(op, true, masked, len(payload))
	if err := c.t.send(header, deadline); err != nil {
		return err
	}

	if masked {
		var mask [4]byte
		if _, err := rand.Read(mask[:]); err != nil {
			return err
		}
		if err := c.t.send(mask[:], deadline); err != nil {
			return err
		}
		if len(payload) > 0 {
			out := append([]byte(nil), payload...)
			applyMask(out, mask, 0)
			if err := c.t.send(out, deadline); err != nil {
				return err
			}
		}
	} else if len(payload) > 0 {
		if err := c.t.send(payload, deadline); err != nil {
			return err
		}
	}

	return c.t.flush(deadline)
}

// Send transmits buf as a single-frame binary message; this profile never
// fragments on send. It returns the number of bytes sent, or 0 with the
// error on failure. Any I/O failure mid-frame marks the connection broken —
// there is no way to resync a half-written frame.
func (c *Conn) Send(buf []byte, deadline time.Time) (int, error) {
	if err := c.checkOpen("send"); err != nil {
		return 0, err
	}
	if err := c.sendFrame(opBinary, buf, deadline); err != nil {
		c.setBroken()
		return 0, err
	}
	return len(buf), nil
}

// Recv reads one complete message: a run of frames beginning with opcode
// text or binary and ending with a fin=1 frame, with interleaved control
// frames handled internally. It returns the full message
// length, which may exceed len(buf) if the message didn't fit — the excess
// is drained from the stream and counted, so the caller can detect
// truncation. Recv returns 0 with KindAgain if it observes an unsolicited
// pong, and 0 with KindConnReset once the peer's closing handshake
// completes.
func (c *Conn) Recv(buf []byte, deadline time.Time) (int, error) {
	if err := c.checkOpen("recv"); err != nil {
		return 0, err
	}

	var total int
	expectingFirst := true

	for {
		h, err := readFrameHeader(c.t, deadline)
		if err != nil {
			c.setBroken()
			return 0, err
		}

		if h.opcode.isControl() {
			if err := c.handleControlFrame(h, deadline); err != nil {
				return 0, err
			}
			continue
		}

		if expectingFirst {
			if h.opcode != opText && h.opcode != opBinary {
				c.setBroken()
				c.log.Error().Uint8("opcode", byte(h.opcode)).Msg("unexpected opcode starting a message")
				return 0, newErr("recv", KindProto, nil)
			}
			expectingFirst = false
		} else if h.opcode != opContinuation {
			c.setBroken()
			c.log.Error().Uint8("opcode", byte(h.opcode)).Msg("expected continuation frame")
			return 0, newErr("recv", KindProto, nil)
		}

		if c.role == roleServer && !h.masked {
			c.setBroken()
			c.log.Error().Msg("received unmasked frame from client")
			return 0, newErr("recv", KindProto, nil)
		}
		if c.role == roleClient && h.masked {
			c.setBroken()
			c.log.Error().Msg("received masked frame from server")
			return 0, newErr("recv", KindProto, nil)
		}

		if h.payloadLen > uint64(c.maxMessageSize) {
			c.setBroken()
			c.log.Error().Uint64("payload_len", h.payloadLen).Msg("declared payload length exceeds maxMessageSize")
			return 0, newErr("recv", KindNoMem, nil)
		}

		remaining := len(buf) - total
		if remaining < 0 {
			remaining = 0
		}
		toUser := int(h.payloadLen)
		overflow := 0
		if toUser > remaining {
			overflow = toUser - remaining
			toUser = remaining
		}

		if toUser > 0 {
			chunk := buf[total : total+toUser]
			if err := c.t.recv(chunk, deadline); err != nil {
				c.setBroken()
				return 0, err
			}
			if h.masked {
				applyMask(chunk, h.mask, 0)
			}
			total += toUser
		}
		if overflow > 0 {
			if err := c.t.drain(overflow, deadline); err != nil {
				c.setBroken()
				return 0, err
			}
			total += overflow
		}

		if h.fin {
			return total, nil
		}
	}
}

// handleControlFrame processes a ping, pong, or close frame observed inside
// Recv's loop. A nil return means "handled, keep reading" (only true for
// ping); any other return is the error Recv should surface immediately.
func (c *Conn) handleControlFrame(h frameHeader, deadline time.Time) error {
	if !h.fin {
		c.setBroken()
		c.log.Error().Msg("fragmented control frame")
		return newErr("recv", KindProto, nil)
	}

	if h.payloadLen > 0 {
		if err := c.t.drain(int(h.payloadLen), deadline); err != nil {
			c.setBroken()
			return err
		}
	}

	switch h.opcode {
	case opClose:
		c.log.Debug().Msg("received close frame")
		if !c.isDoneSent() {
			if err := c.sendFrame(opClose, nil, deadline); err != nil {
				c.setBroken()
				return err
			}
		}
		c.setBrokenAndDoneSent()
		return newErr("recv", KindConnReset, nil)

	case opPing:
		c.log.Trace().Msg("received ping")
		if !c.isDoneSent() {
			if err := c.sendFrame(opPong, nil, deadline); err != nil {
				c.setBroken()
				return err
			}
		}
		return nil

	case opPong:
		c.log.Trace().Msg("received unsolicited pong")
		return newErr("recv", KindAgain, nil)

	default:
		c.setBroken()
		c.log.Error().Uint8("opcode", byte(h.opcode)).Msg("unknown control opcode")
		return newErr("recv", KindProto, nil)
	}
}

// Ping sends an unsolicited ping control frame.
func (c *Conn) Ping(deadline time.Time) error {
	if err := c.checkControl("ping"); err != nil {
		return err
	}
	if err := c.sendFrame(opPing, nil, deadline); err != nil {
		c.setBroken()
		return err
	}
	c.log.Trace().Msg("sent ping")
	return nil
}

// Pong sends an unsolicited pong control frame, independent of the
// automatic pong Recv sends in reply to an incoming ping.
func (c *Conn) Pong(deadline time.Time) error {
	if err := c.checkControl("pong"); err != nil {
		return err
	}
	if err := c.sendFrame(opPong, nil, deadline); err != nil {
		c.setBroken()
		return err
	}
	c.log.Trace().Msg("sent pong")
	return nil
}

// Done initiates the closing handshake by sending a close control frame.
// It does not wait for the peer's close frame; the caller's subsequent Recv
// calls will observe KindConnReset once it arrives.
func (c *Conn) Done(deadline time.Time) error {
	if err := c.checkControl("done"); err != nil {
		return err
	}
	if err := c.sendFrame(opClose, nil, deadline); err != nil {
		c.setBroken()
		return err
	}
	c.setDoneSent()
	c.log.Debug().Msg("sent close frame")
	return nil
}

// Close releases the connection's resources. It is idempotent and never
// touches the wire beyond closing the underlying transport.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.t.close()
}
