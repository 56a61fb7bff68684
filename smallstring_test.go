package wsock

import (
	"strings"
	"testing"
)

func TestSmallStringNullVsEmpty(t *testing.T) {
	null := nullString()
	if v, ok := null.Get(); ok {
		t.Fatalf("nullString().Get() = (%q, true), want ok=false", v)
	}

	empty := newString("")
	v, ok := empty.Get()
	if !ok {
		t.Fatalf("newString(\"\").Get() ok=false, want true")
	}
	if v != "" {
		t.Fatalf("newString(\"\").Get() = %q, want \"\"", v)
	}
}

func TestSmallStringInlineVsHeap(t *testing.T) {
	short := newString("sp2")
	if short.kind != kindInline {
		t.Fatalf("short string stored as kind %v, want kindInline", short.kind)
	}
	if v, _ := short.Get(); v != "sp2" {
		t.Fatalf("short.Get() = %q, want \"sp2\"", v)
	}

	long := strings.Repeat("x", smallStringInline+1)
	ls := newString(long)
	if ls.kind != kindHeap {
		t.Fatalf("long string stored as kind %v, want kindHeap", ls.kind)
	}
	if v, _ := ls.Get(); v != long {
		t.Fatalf("ls.Get() round-trip mismatch")
	}

	exact := strings.Repeat("y", smallStringInline)
	es := newString(exact)
	if es.kind != kindInline {
		t.Fatalf("exact-threshold string stored as kind %v, want kindInline", es.kind)
	}
	if v, _ := es.Get(); v != exact {
		t.Fatalf("es.Get() round-trip mismatch")
	}
}
