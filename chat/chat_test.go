package chat

import (
	"context"
	"testing"
	"time"
)

func TestSubNoticeIDs(t *testing.T) {
	for _, id := range []string{"sub", "resub", "subgift", "anonsubgift", "giftpaidupgrade"} {
		if !subNoticeIDs[id] {
			t.Errorf("%s not treated as a subscription notice", id)
		}
	}
	for _, id := range []string{"raid", "ritual", "bitsbadgetier", ""} {
		if subNoticeIDs[id] {
			t.Errorf("%s wrongly treated as a subscription notice", id)
		}
	}
}

func TestWaitUntilLiveWithoutHelix(t *testing.T) {
	start := time.Now()
	waitUntilLive(context.Background(), nil, "darkautumn", 10*time.Millisecond)
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("returned after %v, want at least the backoff delay", elapsed)
	}
}

func TestWaitUntilLiveHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		waitUntilLive(ctx, nil, "darkautumn", time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waitUntilLive did not return on cancelled context")
	}
}
