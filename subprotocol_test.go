package wsock

import "testing"

func TestMatchSubprotocolTieBreak(t *testing.T) {
	// Server advertises "sp1,sp2,sp3", client
	// requests "sp2,sp1"; negotiated = "sp2" (client-first-match wins).
	got, ok := matchSubprotocol("sp1,sp2,sp3", "sp2,sp1")
	if !ok || got != "sp2" {
		t.Fatalf("matchSubprotocol = (%q, %v), want (\"sp2\", true)", got, ok)
	}
}

func TestMatchSubprotocolNoMatch(t *testing.T) {
	if _, ok := matchSubprotocol("a,b", "c,d"); ok {
		t.Fatal("expected no match")
	}
}

func TestMatchSubprotocolEmptyInputs(t *testing.T) {
	if _, ok := matchSubprotocol("", "a"); ok {
		t.Fatal("expected no match against empty available list")
	}
	if _, ok := matchSubprotocol("a", ""); ok {
		t.Fatal("expected no match against empty requested list")
	}
}
