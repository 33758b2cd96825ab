package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestRandStringUnique(t *testing.T) {
	a, err := RandString(32)
	if err != nil {
		t.Fatalf("rand: %v", err)
	}
	b, _ := RandString(32)
	if a == "" || a == b {
		t.Fatalf("expected distinct tokens, got %q and %q", a, b)
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("expected url-safe token, got %q", a)
	}
}

func TestLoggerWritesLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf)
	l.Printf("hello %s", "world")
	l.Errorf("broken %d", 7)
	out := buf.String()
	if !strings.Contains(out, "hello world") || !strings.Contains(out, "level=ERROR") {
		t.Fatalf("unexpected log output: %s", out)
	}
	var nilLogger *Logger
	nilLogger.Printf("ignored")
}
