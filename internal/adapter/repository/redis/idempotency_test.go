package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStoreFirstRequestLocks(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "req-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if exists {
		t.Fatal("first request should not find an existing key")
	}

	// A second request with the same key sees the in-flight placeholder.
	exists, existing, err := store.CheckAndSet(ctx, "req-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !exists {
		t.Fatal("second request should find the key")
	}
	if string(existing) != "processing" {
		t.Fatalf("expected processing placeholder, got %s", existing)
	}
}

func TestIdempotencyStoreUpdateStoresResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "req-1", nil, time.Minute); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if err := store.Update(ctx, "req-1", []byte(`{"id":"acc-1"}`), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	exists, existing, err := store.CheckAndSet(ctx, "req-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !exists || string(existing) != `{"id":"acc-1"}` {
		t.Fatalf("expected stored response, got exists=%v body=%s", exists, existing)
	}
}

func TestIdempotencyStoreSetWithResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "req-1", []byte("done"), time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if exists {
		t.Fatal("fresh key should not exist")
	}

	exists, existing, err := store.CheckAndSet(ctx, "req-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !exists || string(existing) != "done" {
		t.Fatalf("expected done, got exists=%v body=%s", exists, existing)
	}
}
