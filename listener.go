package wsock

import (
	"net"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Listener accepts raw TCP connections and performs the server side of the
// opening handshake on each before handing back an open Conn. It owns its
// underlying net.Listener and its advertised subprotocol list exclusively;
// each accepted Conn is a new, independent owner of its own transport.
type Listener struct {
	ln         net.Listener
	advertised string
	opts       options
}

// Listen binds addr and returns a Listener that will advertise
// subprotocols (a comma-separated list, or "" for none) to every client it
// accepts. backlog is accepted for API symmetry with the connect side but
// otherwise unused — Go's net package doesn't expose a listen(2) backlog
// knob.
func Listen(addr string, subprotocols string, backlog int, opts ...Option) (*Listener, error) {
	_ = backlog
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, advertised: subprotocols, opts: newOptions(opts)}, nil
}

// Addr returns the listener's bound network address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Accept blocks until a new client completes the transport connect and the
// server-side opening handshake, or deadline expires. On handshake failure
// the underlying connection is closed and the error is returned; on
// transport accept failure the raw net error is returned.
func (l *Listener) Accept(deadline time.Time) (*Conn, error) {
	if dl, ok := l.ln.(interface{ SetDeadline(time.Time) error }); ok {
		if err := dl.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}
	raw, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}

	t := newTransport(raw)
	log := l.opts.logger.With().Str("conn_id", shortuuid.New()).Logger()

	url, subprotocol, err := acceptHandshake(t, l.advertised, deadline, log)
	if err != nil {
		_ = t.close()
		return nil, err
	}

	c := newConn(t, roleServer, url, subprotocol, l.opts)
	c.log = log
	return c, nil
}
