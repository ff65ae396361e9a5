package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	for _, c := range []string{ErrProtoBadRequest, ErrBadRequest, ErrInvalidTarget, ErrRateLimit, ErrInternal, ""} {
		if !IsKnownCode(c) {
			t.Fatalf("expected %q to be known", c)
		}
	}
	if IsKnownCode("E_NOPE") {
		t.Fatalf("unexpected known code")
	}
}
