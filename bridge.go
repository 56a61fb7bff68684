package wsock

import (
	"net"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// AcceptHijacked completes a server-side WebSocket handshake over a net.Conn
// that net/http has already hijacked, given the header values a net/http
// server parsed for the caller: requestURI, the raw Sec-WebSocket-Protocol
// header instances (zero, one, or more), and the Sec-WebSocket-Key value.
// It exists so server/httpbridge.go's net/http adapter can reuse this
// package's own subprotocol negotiation and accept-key derivation instead
// of duplicating them, since by the time net/http hands back a hijacked
// conn the request line and headers have already been consumed off the
// wire and can't be re-read by acceptHandshake.
func AcceptHijacked(conn net.Conn, advertised, requestURI string, protocolValues []string, key string, opts ...Option) (*Conn, error) {
	o := newOptions(opts)
	log := o.logger.With().Str("conn_id", shortuuid.New()).Logger()

	chosen, sawProtocol, err := negotiateServerSubprotocol(advertised, protocolValues)
	if err != nil {
		log.Error().Err(err).Msg("subprotocol negotiation failed")
		return nil, err
	}

	t := newTransport(conn)
	if err := writeAcceptResponse(t, key, chosen, time.Time{}); err != nil {
		return nil, err
	}

	local := chosen
	if !sawProtocol && advertised != "" {
		local = firstToken(advertised)
	}
	subprotocol := nullString()
	if local != "" {
		subprotocol = newString(local)
	}

	log.Debug().Str("url", requestURI).Str("subprotocol", local).Msg("accepted hijacked handshake")
	c := newConn(t, roleServer, newString(requestURI), subprotocol, o)
	c.log = log
	return c, nil
}
