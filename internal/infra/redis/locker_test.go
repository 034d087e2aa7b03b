package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLockerExcludesSecondHolder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), 5*time.Second)
	unlock, err := locker.Lock(context.Background(), "meet:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("lock:meet:1") {
		t.Fatalf("expected lock key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "meet:1"); err == nil {
		t.Fatalf("expected second lock to time out")
	}

	unlock()
	if mr.Exists("lock:meet:1") {
		t.Fatalf("expected lock key released")
	}
	again, err := locker.Lock(context.Background(), "meet:1")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestLockerReleaseKeepsForeignLock(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Second)
	stale, err := locker.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// The first holder's lease expires and someone else takes the key.
	mr.FastForward(2 * time.Second)
	fresh, err := locker.Lock(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("lock after expiry: %v", err)
	}
	defer fresh()

	stale()
	if !mr.Exists("lock:user:1") {
		t.Fatalf("stale unlock removed the new holder's lock")
	}
}
