package budget

import "testing"

func TestNew(t *testing.T) {
	b := New(1000000, 615800, 1700000000000)
	if b.TokensLimit() != 1000000 {
		t.Errorf("TokensLimit() = %d", b.TokensLimit())
	}
	if b.TokensRemaining() != 615800 {
		t.Errorf("TokensRemaining() = %d", b.TokensRemaining())
	}
	if b.IsExhausted() || b.Unlimited() {
		t.Errorf("unexpected flags: exhausted=%v unlimited=%v", b.IsExhausted(), b.Unlimited())
	}
	if b.ResetsAt() != 1700000000000 {
		t.Errorf("ResetsAt() = %d", b.ResetsAt())
	}
}

func TestNew_Exhausted(t *testing.T) {
	b := New(1000, -20, 0)
	if !b.IsExhausted() {
		t.Error("IsExhausted() = false, want true")
	}
	if b.TokensRemaining() != 0 {
		t.Errorf("TokensRemaining() = %d, want clamped 0", b.TokensRemaining())
	}
}

func TestNew_Unlimited(t *testing.T) {
	b := New(0, -1, 0)
	if !b.Unlimited() || b.IsExhausted() {
		t.Errorf("unexpected flags: unlimited=%v exhausted=%v", b.Unlimited(), b.IsExhausted())
	}
}
