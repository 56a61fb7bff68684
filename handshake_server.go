package wsock

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// acceptHandshake performs the server side of the opening handshake
// over t: reads the request line and headers, validates the
// required Upgrade/Connection/Sec-WebSocket-Key headers, negotiates a
// subprotocol against advertised, and writes the 101 response.
//
// The required-header validation order and the accept-key derivation mirror
// server/httpbridge.go's net/http-facing variant of the same handshake.
func acceptHandshake(t *transport, advertised string, deadline time.Time, log zerolog.Logger) (url smallString, subprotocol smallString, err error) {
	requestLine, err := readLine(t, deadline)
	if err != nil {
		return nullString(), nullString(), err
	}
	fields := strings.Fields(requestLine)
	if len(fields) != 3 || fields[0] != "GET" || fields[2] != "HTTP/1.1" {
		log.Error().Str("request_line", requestLine).Msg("malformed request line")
		return nullString(), nullString(), newErr("accept", KindProto, nil)
	}
	requestURI := fields[1]

	var (
		sawUpgrade, sawConnection, sawKey bool
		key                               string
		protocolValues                    []string
	)

	for {
		line, err := readLine(t, deadline)
		if err != nil {
			return nullString(), nullString(), err
		}
		if line == "" {
			break
		}
		name, value, ok := headerLine(line)
		if !ok {
			continue
		}

		switch name {
		case "upgrade":
			if sawUpgrade || !strings.EqualFold(value, "websocket") {
				log.Error().Str("upgrade", value).Msg("invalid or duplicate Upgrade header")
				return nullString(), nullString(), newErr("accept", KindProto, nil)
			}
			sawUpgrade = true

		case "connection":
			if sawConnection || !strings.EqualFold(value, "upgrade") {
				log.Error().Str("connection", value).Msg("invalid or duplicate Connection header")
				return nullString(), nullString(), newErr("accept", KindProto, nil)
			}
			sawConnection = true

		case "sec-websocket-key":
			if sawKey || value == "" {
				log.Error().Msg("missing or duplicate Sec-WebSocket-Key header")
				return nullString(), nullString(), newErr("accept", KindProto, nil)
			}
			sawKey = true
			key = value

		case "sec-websocket-protocol":
			protocolValues = append(protocolValues, value)
		}
	}

	if !sawUpgrade || !sawConnection || !sawKey {
		log.Error().Msg("missing required handshake header")
		return nullString(), nullString(), newErr("accept", KindProto, nil)
	}

	chosen, sawProtocol, err := negotiateServerSubprotocol(advertised, protocolValues)
	if err != nil {
		log.Error().Err(err).Msg("subprotocol negotiation failed")
		return nullString(), nullString(), err
	}

	if err := writeAcceptResponse(t, key, chosen, deadline); err != nil {
		return nullString(), nullString(), err
	}

	// Quirk: if the client sent no Sec-WebSocket-Protocol header
	// at all but this server advertises one, the server's own handle still
	// records its first listed token as "negotiated" — observable only on
	// this side, since nothing is sent back to the client for it.
	local := chosen
	if !sawProtocol && advertised != "" {
		local = firstToken(advertised)
	}

	subp := nullString()
	if local != "" {
		subp = newString(local)
	}
	log.Debug().Str("url", requestURI).Str("subprotocol", local).Msg("accepted handshake")
	return newString(requestURI), subp, nil
}

// negotiateServerSubprotocol runs the server-side subprotocol
// negotiation against the raw values of every Sec-WebSocket-Protocol
// instance the client sent (zero, one, or more). sawHeader reports whether
// the header appeared at all, independent of whether a match was found.
func negotiateServerSubprotocol(advertised string, values []string) (chosen string, sawHeader bool, err error) {
	for _, v := range values {
		sawHeader = true
		if chosen != "" {
			continue // only the first instance with a match counts
		}
		if advertised == "" {
			chosen = firstToken(v)
		} else if m, ok := matchSubprotocol(advertised, v); ok {
			chosen = m
		}
	}
	if sawHeader && chosen == "" {
		return "", true, newErr("accept", KindProto, nil)
	}
	return chosen, sawHeader, nil
}

// writeAcceptResponse writes the 101 Switching Protocols response for key,
// advertising chosen (if non-empty) as the negotiated subprotocol.
func writeAcceptResponse(t *transport, key, chosen string, deadline time.Time) error {
	var resp strings.Builder
	resp.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	resp.WriteString("Upgrade: websocket\r\n")
	resp.WriteString("Connection: Upgrade\r\n")
	resp.WriteString("Sec-WebSocket-Accept: ")
	resp.WriteString(acceptKey(key))
	resp.WriteString("\r\n")
	if chosen != "" {
		resp.WriteString("Sec-WebSocket-Protocol: ")
		resp.WriteString(chosen)
		resp.WriteString("\r\n")
	}
	resp.WriteString("\r\n")

	if err := t.send([]byte(resp.String()), deadline); err != nil {
		return err
	}
	return t.flush(deadline)
}
