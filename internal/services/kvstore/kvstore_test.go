package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"intakedash/internal/services/storage"
)

// fakeRedis answers Get and Set from a map
type fakeRedis struct {
	data map[string]string
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	files, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"file":   NewFile(files),
		"redis":  &Redis{client: &fakeRedis{data: make(map[string]string)}},
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx, "active_org"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v err %v, want absent", ok, err)
			}

			if err := store.Set(ctx, "active_org", "org-1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Set(ctx, "active_org", "org-2"); err != nil {
				t.Fatalf("Set: %v", err)
			}

			v, ok, err := store.Get(ctx, "active_org")
			if err != nil || !ok || v != "org-2" {
				t.Errorf("Get = %q ok %v err %v, want org-2", v, ok, err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	if s, err := Open(ctx, Options{}); err != nil {
		t.Errorf("Open(default) error: %v", err)
	} else if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(default) = %T, want *Memory", s)
	}

	if _, err := Open(ctx, Options{Backend: BackendFile}); err == nil {
		t.Error("Expected error for file backend without storage")
	}

	if _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Error("Expected error for unknown backend")
	}

	if _, err := Open(ctx, Options{Backend: BackendRedis, RedisURL: "not a url"}); err == nil {
		t.Error("Expected error for bad redis url")
	}
}

func TestKeyPath(t *testing.T) {
	if got := keyPath("intakedash.active_org"); got != "kv/intakedash.active_org" {
		t.Errorf("keyPath = %q", got)
	}
	if got := keyPath("../escape"); got != "kv/.._escape" {
		t.Errorf("keyPath = %q, want kv/.._escape", got)
	}
}
