package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"utility-billing/internal/mailbox"
	"utility-billing/internal/mailbox/redisstore"
)

func newStore(t *testing.T) *redisstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := redisstore.NewStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestStore_PutGetRemove(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent, ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	raw, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(raw) != "v" {
		t.Fatalf("get: %q ok=%v err=%v", raw, ok, err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected removed")
	}
	// Removing an absent key is fine.
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
}

func TestStore_SetNX(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	ok, err := store.SetNX(ctx, "lock", []byte("run-a"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first setnx: ok=%v err=%v", ok, err)
	}
	ok, err = store.SetNX(ctx, "lock", []byte("run-b"), time.Minute)
	if err != nil || ok {
		t.Fatalf("second setnx should fail: ok=%v err=%v", ok, err)
	}
}

func TestStore_CourierRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	courier, err := mailbox.NewCourier(store, mailbox.WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("new courier: %v", err)
	}
	req, err := courier.PostRequest(ctx, mailbox.KindListLeases, "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	taken, ok, err := courier.TakeRequest(ctx, mailbox.KindListLeases)
	if err != nil || !ok {
		t.Fatalf("take: ok=%v err=%v", ok, err)
	}
	if err := courier.PostResult(ctx, taken, []string{"lease-1"}, nil); err != nil {
		t.Fatalf("post result: %v", err)
	}
	res, err := courier.AwaitResult(ctx, mailbox.KindListLeases, "", time.Second)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if res.RequestID != req.RequestID {
		t.Fatalf("correlation lost: %+v", res)
	}
}
