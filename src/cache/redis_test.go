package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"cgm-alert-pipeline/src/types"
)

type memoryStore struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.data[key] = value
	m.ttls[key] = ttl
}

func TestRedisStoreUnreachableIsBestEffort(t *testing.T) {
	store := NewRedisStore(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer store.Close()

	ctx := context.Background()
	if _, ok := store.Get(ctx, "status:dexcom:a@example.com"); ok {
		t.Fatalf("expected miss from unreachable cache")
	}
	store.Set(ctx, "status:dexcom:a@example.com", []byte(`{}`), time.Minute)
}

func TestStatusKey(t *testing.T) {
	if got := StatusKey(types.ProviderDexcom, "a@example.com"); got != "status:dexcom:a@example.com" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestAlertStatusRoundTrip(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	high := types.AlertHigh
	status := types.AlertStatus{
		LastAlertStatus:       &high,
		LastLowAlertStatuses:  map[string]bool{"a@example.com": false},
		LastHighAlertStatuses: map[string]bool{"a@example.com": true, "g@example.com": true},
	}

	SaveAlertStatus(ctx, store, "k", status, time.Hour)
	if store.ttls["k"] != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", store.ttls["k"])
	}

	got, ok := LoadAlertStatus(ctx, store, "k")
	if !ok {
		t.Fatalf("expected a hit")
	}
	if got.LastAlertStatus == nil || *got.LastAlertStatus != types.AlertHigh {
		t.Fatalf("unexpected last status %v", got.LastAlertStatus)
	}
	if !got.LastHighAlertStatuses["g@example.com"] || got.LastLowAlertStatuses["a@example.com"] {
		t.Fatalf("unexpected voice statuses: %+v", got)
	}
}

func TestLoadAlertStatusMissAndGarbage(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()

	if _, ok := LoadAlertStatus(ctx, store, "missing"); ok {
		t.Fatalf("expected miss")
	}
	store.data["bad"] = []byte("not json")
	if _, ok := LoadAlertStatus(ctx, store, "bad"); ok {
		t.Fatalf("expected garbage to be treated as a miss")
	}
}
