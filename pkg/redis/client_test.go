package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("login:ip:10.0.0.1")

	for want := int64(1); want <= 3; want++ {
		count, err := client.IncrWithTTL(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != want {
			t.Fatalf("expected counter %d got %d", want, count)
		}
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected a single expire, got %d", len(mock.expireCalls))
	}
	if mock.expireCalls[0].key != key || mock.expireCalls[0].ttl != time.Minute {
		t.Fatalf("unexpected expire call %+v", mock.expireCalls[0])
	}
}

func TestCartSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if _, err := client.Get(ctx, client.CartSessionKey("sess_1_abc")); err != redis.Nil {
		t.Fatalf("expected unknown session to be absent, got %v", err)
	}

	if err := client.RememberCartSession(ctx, "sess_1_abc", time.Hour); err != nil {
		t.Fatalf("remember failed: %v", err)
	}
	if _, err := client.Get(ctx, client.CartSessionKey("sess_1_abc")); err != nil {
		t.Fatalf("expected remembered session to exist, got %v", err)
	}

	known, err := client.TouchCartSession(ctx, "sess_1_abc", 2*time.Hour)
	if err != nil || !known {
		t.Fatalf("expected touch to find the session, got %v %v", known, err)
	}
	last := mock.expireCalls[len(mock.expireCalls)-1]
	if last.key != client.CartSessionKey("sess_1_abc") || last.ttl != 2*time.Hour {
		t.Fatalf("unexpected expire call %+v", last)
	}
	if known, _ := client.TouchCartSession(ctx, "sess_2_forged", time.Hour); known {
		t.Fatal("expected unknown session to report false")
	}

	if err := client.ForgetCartSession(ctx, "sess_1_abc"); err != nil {
		t.Fatalf("forget failed: %v", err)
	}
	if _, err := client.Get(ctx, client.CartSessionKey("sess_1_abc")); err != redis.Nil {
		t.Fatalf("expected redis.Nil after forget, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "sf:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.CartSessionKey("sess_1_x"); got != "sf:cart_session:sess_1_x" {
		t.Fatalf("unexpected cart session key %s", got)
	}
	if got := client.LockKey("cron-worker:prod"); got != "sf:lock:cron-worker:prod" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.IdempotencyKey("", "id"); got != "sf:idempotency:id" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	_, stored := m.data[key]
	_, counted := m.incr[key]
	return redis.NewBoolResult(stored || counted, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
