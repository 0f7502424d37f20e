package logger

import "testing"

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := New(level)
		if err != nil {
			t.Fatalf("New(%q): %v", level, err)
		}
		_ = l.Sync()
	}

	if _, err := New("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNamed_NilBase(t *testing.T) {
	if Named(nil, "http") == nil {
		t.Fatalf("expected nop logger")
	}
}
