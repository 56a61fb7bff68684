package wsock

import (
	"testing"
	"time"
)

func TestListenAcceptConnectURLPropagation(t *testing.T) {
	// Client connects with url = "/a/b/c", no subprotocol.
	ln, err := Listen("127.0.0.1:0", "", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverConn := make(chan *Conn, 1)
	serverErr := make(chan error, 1)
	go func() {
		c, err := ln.Accept(time.Time{})
		serverConn <- c
		serverErr <- err
	}()

	client, err := Connect(ln.Addr().String(), "", "/a/b/c", time.Time{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if err := <-serverErr; err != nil {
		t.Fatalf("Accept: %v", err)
	}
	server := <-serverConn
	defer server.Close()

	if got, ok := server.URL(); !ok || got != "/a/b/c" {
		t.Fatalf("server.URL() = (%q, %v), want (\"/a/b/c\", true)", got, ok)
	}
	if _, ok := server.Subprotocol(); ok {
		t.Fatal("server.Subprotocol() should be null")
	}
	if _, ok := client.Subprotocol(); ok {
		t.Fatal("client.Subprotocol() should be null")
	}
}

func TestListenAcceptConnectSubprotocolMatch(t *testing.T) {
	// Server listens with "sp3,sp2"; client connects with
	// "sp1,sp2"; both observe "sp2".
	ln, err := Listen("127.0.0.1:0", "sp3,sp2", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverConn := make(chan *Conn, 1)
	serverErr := make(chan error, 1)
	go func() {
		c, err := ln.Accept(time.Time{})
		serverConn <- c
		serverErr <- err
	}()

	client, err := Connect(ln.Addr().String(), "sp1,sp2", "/", time.Time{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if err := <-serverErr; err != nil {
		t.Fatalf("Accept: %v", err)
	}
	server := <-serverConn
	defer server.Close()

	if got, ok := server.Subprotocol(); !ok || got != "sp2" {
		t.Fatalf("server.Subprotocol() = (%q, %v), want (\"sp2\", true)", got, ok)
	}
	if got, ok := client.Subprotocol(); !ok || got != "sp2" {
		t.Fatalf("client.Subprotocol() = (%q, %v), want (\"sp2\", true)", got, ok)
	}
}

func TestConnectRejectsNonPrintableURL(t *testing.T) {
	_, err := Connect("127.0.0.1:1", "", "/a\x00b", time.Time{})
	if kind, ok := errKind(err); !ok || kind != KindInval {
		t.Fatalf("Connect with non-printable url = %v, want KindInval", err)
	}
}

func TestListenAndDataRoundTrip(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", "", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	serverConn := make(chan *Conn, 1)
	go func() {
		c, _ := ln.Accept(time.Time{})
		serverConn <- c
	}()

	client, err := Connect(ln.Addr().String(), "", "/", time.Time{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()
	server := <-serverConn
	if server == nil {
		t.Fatal("Accept returned nil Conn")
	}
	defer server.Close()

	msg := []byte("ping over loopback")
	sendErr := make(chan error, 1)
	go func() {
		_, err := client.Send(msg, time.Time{})
		sendErr <- err
	}()

	buf := make([]byte, 128)
	n, err := server.Recv(buf, time.Time{})
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-sendErr; err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(buf[:n]) != string(msg) {
		t.Fatalf("Recv = %q, want %q", buf[:n], msg)
	}
}
