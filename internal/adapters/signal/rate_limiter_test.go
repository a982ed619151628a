package signal

import (
	"testing"
	"time"
)

func TestCursorLimiterWindow(t *testing.T) {
	rl := NewCursorLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !rl.Allow("conn-1") {
			t.Fatalf("event %d inside the limit was dropped", i)
		}
	}
	if rl.Allow("conn-1") {
		t.Error("event over the limit was allowed")
	}

	// Another connection has its own window.
	if !rl.Allow("conn-2") {
		t.Error("independent connection was throttled")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("conn-1") {
		t.Error("event after the window expired was dropped")
	}
}

func TestCursorLimiterDisabled(t *testing.T) {
	rl := NewCursorLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		if !rl.Allow("conn-1") {
			t.Fatal("disabled limiter dropped an event")
		}
	}
}

func TestCursorLimiterForget(t *testing.T) {
	rl := NewCursorLimiter(1, time.Minute)

	rl.Allow("conn-1")
	if rl.Allow("conn-1") {
		t.Fatal("second event inside the window was allowed")
	}

	rl.Forget("conn-1")
	if !rl.Allow("conn-1") {
		t.Error("window survived Forget")
	}
}
