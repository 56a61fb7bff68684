// Copyright 2020 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server adapts wsock's raw-transport handshake engine to run
// behind a standard net/http server, for callers who already run an HTTP
// mux and want to mount a WebSocket endpoint on it instead of owning a
// dedicated listening socket.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lattice-ws/wsock"
)

// Bridge upgrades r to a WebSocket connection and returns the resulting
// *wsock.Conn, or writes an HTTP error response and returns an error if the
// request doesn't qualify. advertised is the server's comma-separated
// subprotocol list, or "" for none — the same value a wsock.Listener would
// be constructed with.
//
// The RFC 6455 §4.2.1 header checks and the Hijacker-based takeover of the
// underlying net.Conn run in request order; the handshake response itself
// is delegated to wsock's own accept-key derivation and subprotocol
// negotiation so there is exactly one place in the module that knows how
// to speak the opening handshake.
func Bridge(w http.ResponseWriter, r *http.Request, advertised string, opts ...wsock.Option) (*wsock.Conn, error) {
	if r.Method != http.MethodGet {
		return nil, httpError(w, http.StatusMethodNotAllowed, "request method must be GET")
	}
	if r.Host == "" {
		return nil, httpError(w, http.StatusBadRequest, "'Host' missing in request")
	}
	if !headerContains(r.Header, "Upgrade", "websocket") {
		return nil, httpError(w, http.StatusBadRequest, "invalid value for header 'Upgrade'")
	}
	if !headerContains(r.Header, "Connection", "Upgrade") {
		return nil, httpError(w, http.StatusBadRequest, "invalid value for header 'Connection'")
	}
	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, httpError(w, http.StatusBadRequest, "key missing")
	}
	if !headerContains(r.Header, "Sec-WebSocket-Version", "13") {
		return nil, httpError(w, http.StatusBadRequest, "invalid version")
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return nil, httpError(w, http.StatusInternalServerError, "connection does not support hijacking")
	}
	conn, brw, err := hijacker.Hijack()
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, httpError(w, http.StatusInternalServerError, err.Error())
	}
	if brw.Reader.Buffered() > 0 {
		conn.Close()
		return nil, httpError(w, http.StatusBadRequest, "client sent data before handshake is complete")
	}

	ws, err := wsock.AcceptHijacked(conn, advertised, r.URL.RequestURI(), r.Header.Values("Sec-WebSocket-Protocol"), key, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ws, nil
}

// headerContains reports whether header named `name` contains a
// comma-separated token equal to `value`, case-insensitively.
func headerContains(header http.Header, name, value string) bool {
	for _, s := range header[name] {
		for _, t := range strings.Split(s, ",") {
			if strings.EqualFold(strings.TrimSpace(t), value) {
				return true
			}
		}
	}
	return false
}

func httpError(w http.ResponseWriter, status int, reason string) error {
	err := fmt.Errorf("websocket handshake error: %s", reason)
	http.Error(w, http.StatusText(status), status)
	return err
}
