package wsock

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAcceptKeyRFCExample(t *testing.T) {
	// The literal RFC 6455 §1.3 worked example.
	got := acceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("acceptKey = %q, want %q", got, want)
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	ct := newTransport(client)
	st := newTransport(server)

	done := make(chan struct{})
	var subp smallString
	var url smallString
	var serverErr error
	go func() {
		defer close(done)
		url, subp, serverErr = acceptHandshake(st, "chat,superchat", time.Time{}, zerolog.Nop())
	}()

	clientSubp, err := connectHandshake(ct, "/chat", "superchat,chat", time.Time{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("connectHandshake: %v", err)
	}
	<-done
	if serverErr != nil {
		t.Fatalf("acceptHandshake: %v", serverErr)
	}

	if got, ok := url.Get(); !ok || got != "/chat" {
		t.Fatalf("server url = (%q, %v), want (\"/chat\", true)", got, ok)
	}
	if got, ok := subp.Get(); !ok || got != "superchat" {
		t.Fatalf("server subprotocol = (%q, %v), want (\"superchat\", true)", got, ok)
	}
	if got, ok := clientSubp.Get(); !ok || got != "superchat" {
		t.Fatalf("client subprotocol = (%q, %v), want (\"superchat\", true)", got, ok)
	}
}

func TestHandshakeServerQuirkNoClientHeader(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	st := newTransport(server)
	done := make(chan struct{})
	var subp smallString
	var serverErr error
	go func() {
		defer close(done)
		_, subp, serverErr = acceptHandshake(st, "chat", time.Time{}, zerolog.Nop())
	}()

	br := bufio.NewReader(client)
	req := "GET / HTTP/1.1\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"\r\n"
	if _, err := client.Write([]byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read response: %v", err)
		}
		if line == "\r\n" {
			break
		}
	}
	<-done
	if serverErr != nil {
		t.Fatalf("acceptHandshake: %v", serverErr)
	}
	// Quirk: server records its own first advertised token even though no
	// Sec-WebSocket-Protocol header was sent back on the wire.
	if got, ok := subp.Get(); !ok || got != "chat" {
		t.Fatalf("server subprotocol = (%q, %v), want (\"chat\", true)", got, ok)
	}
}

func TestHandshakeRejectsMissingKey(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	st := newTransport(server)
	done := make(chan struct{})
	var serverErr error
	go func() {
		defer close(done)
		_, _, serverErr = acceptHandshake(st, "", time.Time{}, zerolog.Nop())
	}()

	req := "GET / HTTP/1.1\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"\r\n"
	if _, err := client.Write([]byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	<-done
	if kind, ok := errKind(serverErr); !ok || kind != KindProto {
		t.Fatalf("acceptHandshake err = %v, want KindProto", serverErr)
	}
}
