package cryptofolio

import "testing"

func TestKeyPool_RotatesRoundRobin(t *testing.T) {
	p := NewKeyPool("a", "b", "c")

	for _, want := range []string{"a", "b", "c", "a"} {
		got, err := p.Current()
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if got != want {
			t.Fatalf("Current() = %q, want %q", got, want)
		}
		p.Rotate()
	}
}

func TestKeyPool_DropsEmptyKeys(t *testing.T) {
	p := NewKeyPool("", "only", "")
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	if got, _ := p.Current(); got != "only" {
		t.Errorf("Current() = %q, want %q", got, "only")
	}
	// a single key keeps being served
	p.Rotate()
	if got, _ := p.Current(); got != "only" {
		t.Errorf("Current() after Rotate = %q, want %q", got, "only")
	}
}

func TestKeyPool_EmptyPool(t *testing.T) {
	p := NewKeyPool()
	if _, err := p.Current(); err != ErrKeysExhausted {
		t.Errorf("Current() error = %v, want ErrKeysExhausted", err)
	}
}
