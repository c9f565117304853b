package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestError(t *testing.T) {
	savedStderr, savedExit := Stderr, exit
	defer func() { Stderr, exit = savedStderr, savedExit }()

	var buf bytes.Buffer
	Stderr = &buf
	code := -1
	exit = func(c int) { code = c }

	Error("unknown sample '%s'", "fib")
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if got := buf.String(); !strings.Contains(got, "error:") || !strings.Contains(got, "unknown sample 'fib'") {
		t.Errorf("unexpected message %q", got)
	}
}

func TestHumanReadable(t *testing.T) {
	if got := Bytes(1 << 20); got != "1.0 MiB" {
		t.Errorf("Bytes(1MiB) = %q", got)
	}
	if got := Count(1234567); got != "1,234,567" {
		t.Errorf("Count = %q", got)
	}
}
