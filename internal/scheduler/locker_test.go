package scheduler

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"sbr_farm/internal/db"

	"github.com/google/uuid"
)

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisLockerIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	client := db.ConnectRedis(addr, os.Getenv("REDIS_PASSWORD"), 0)
	if client == nil {
		t.Fatalf("redis at %s not reachable", addr)
	}
	defer client.Close()

	ctx := context.Background()
	locker := NewRedisLocker(client, 5*time.Second)
	key := "test-" + uuid.NewString()

	lock, err := locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := locker.Lock(ctx, key); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second lock: expected ErrLockHeld, got %v", err)
	}
	if err := lock.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	lock, err = locker.Lock(ctx, key)
	if err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
	_ = lock.Unlock(ctx)
}
