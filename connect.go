package wsock

import (
	"net"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Connect dials addr, then performs the client side of the opening
// handshake requesting url and, if non-empty, one of the
// comma-separated subprotocols. url and any non-empty subprotocols must be
// printable ASCII; this is checked before the network is touched.
func Connect(addr string, subprotocols string, url string, deadline time.Time, opts ...Option) (*Conn, error) {
	if !isPrintableASCII(url) {
		return nil, newErr("connect", KindInval, nil)
	}
	if subprotocols != "" && !isPrintableASCII(subprotocols) {
		return nil, newErr("connect", KindInval, nil)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	log := o.logger.With().Str("conn_id", shortuuid.New()).Logger()

	t := newTransport(conn)
	subprotocol, err := connectHandshake(t, url, subprotocols, deadline, log)
	if err != nil {
		_ = t.close()
		return nil, err
	}

	c := newConn(t, roleClient, newString(url), subprotocol, o)
	c.log = log
	return c, nil
}
