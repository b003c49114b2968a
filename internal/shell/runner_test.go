package shell

import "testing"

func TestTail(t *testing.T) {
	if got := tail("  short  ", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := tail("0123456789", 4); got != "...6789" {
		t.Fatalf("got %q", got)
	}
}
