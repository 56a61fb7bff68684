package wsock

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// connectHandshake performs the client side of the opening handshake over
// t: sends the GET request and headers, then validates the 101 response
// and the Sec-WebSocket-Accept value byte-for-byte.
func connectHandshake(t *transport, requestURI, requestedProtocols string, deadline time.Time, log zerolog.Logger) (subprotocol smallString, err error) {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nullString(), err
	}
	key := base64.StdEncoding.EncodeToString(nonce[:])

	var req strings.Builder
	req.WriteString("GET ")
	req.WriteString(requestURI)
	req.WriteString(" HTTP/1.1\r\n")
	req.WriteString("Upgrade: websocket\r\n")
	req.WriteString("Connection: Upgrade\r\n")
	req.WriteString("Sec-WebSocket-Key: ")
	req.WriteString(key)
	req.WriteString("\r\n")
	if requestedProtocols != "" {
		req.WriteString("Sec-WebSocket-Protocol: ")
		req.WriteString(requestedProtocols)
		req.WriteString("\r\n")
	}
	req.WriteString("\r\n")

	if err := t.send([]byte(req.String()), deadline); err != nil {
		return nullString(), err
	}
	if err := t.flush(deadline); err != nil {
		return nullString(), err
	}

	statusLine, err := readLine(t, deadline)
	if err != nil {
		return nullString(), err
	}
	fields := strings.Fields(statusLine)
	if len(fields) < 2 || fields[0] != "HTTP/1.1" || fields[1] != "101" {
		log.Error().Str("status_line", statusLine).Msg("server did not switch protocols")
		return nullString(), newErr("connect", KindProto, nil)
	}

	var (
		sawUpgrade, sawConnection, sawAccept bool
		accept, protocol                     string
	)

	for {
		line, err := readLine(t, deadline)
		if err != nil {
			return nullString(), err
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
				return nullString(), newErr("connect", KindProto, nil)
			}
			sawUpgrade = true

		case "connection":
			if sawConnection || !strings.EqualFold(value, "upgrade") {
				log.Error().Str("connection", value).Msg("invalid or duplicate Connection header")
				return nullString(), newErr("connect", KindProto, nil)
			}
			sawConnection = true

		case "sec-websocket-accept":
			if sawAccept {
				return nullString(), newErr("connect", KindProto, nil)
			}
			sawAccept = true
			accept = value

		case "sec-websocket-protocol":
			if protocol != "" || strings.Contains(value, ",") {
				log.Error().Str("subprotocol", value).Msg("invalid Sec-WebSocket-Protocol header")
				return nullString(), newErr("connect", KindProto, nil)
			}
			if _, ok := matchSubprotocol(requestedProtocols, value); !ok {
				log.Error().Str("subprotocol", value).Msg("server chose an unrequested subprotocol")
				return nullString(), newErr("connect", KindProto, nil)
			}
			protocol = value
		}
	}

	if !sawUpgrade || !sawConnection || !sawAccept {
		log.Error().Msg("missing required handshake header")
		return nullString(), newErr("connect", KindProto, nil)
	}
	if accept != acceptKey(key) {
		log.Error().Msg("Sec-WebSocket-Accept mismatch")
		return nullString(), newErr("connect", KindProto, nil)
	}

	log.Debug().Str("subprotocol", protocol).Msg("completed handshake")
	if protocol == "" {
		return nullString(), nil
	}
	return newString(protocol), nil
}
