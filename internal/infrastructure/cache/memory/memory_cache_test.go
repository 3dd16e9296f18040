package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/sre-monitor/internal/application/port"
)

type payload struct {
	Status string `json:"status"`
}

func TestCache_SetGet(t *testing.T) {
	cache := NewCache(0)
	ctx := context.Background()

	if err := cache.Set(ctx, "sremon:analysis:current", payload{Status: "WARN"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got payload
	if err := cache.Get(ctx, "sremon:analysis:current", &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != "WARN" {
		t.Errorf("status = %q, want WARN", got.Status)
	}

	if err := cache.Get(ctx, "absent", &got); !errors.Is(err, port.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	cache := NewCache(time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	_ = cache.Set(ctx, "k", payload{Status: "OK"})

	now = now.Add(2 * time.Minute)

	var got payload
	if err := cache.Get(ctx, "k", &got); !errors.Is(err, port.ErrCacheMiss) {
		t.Errorf("expected expired entry to miss, got %v", err)
	}
}

func TestCache_DeletePattern(t *testing.T) {
	cache := NewCache(0)
	ctx := context.Background()

	_ = cache.Set(ctx, "sremon:cycles:1:2:10", payload{})
	_ = cache.Set(ctx, "sremon:cycles:3:4:10", payload{})
	_ = cache.Set(ctx, "sremon:analysis:current", payload{})

	if err := cache.DeletePattern(ctx, "sremon:cycles:*"); err != nil {
		t.Fatalf("DeletePattern() error = %v", err)
	}

	var got payload
	if err := cache.Get(ctx, "sremon:cycles:1:2:10", &got); !errors.Is(err, port.ErrCacheMiss) {
		t.Error("history key should be removed")
	}
	if err := cache.Get(ctx, "sremon:analysis:current", &got); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}
}
