package upstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeRedis implements just enough of SET NX and EVAL for the lock.
type fakeRedis struct {
	mu       sync.Mutex
	values   map[string]string
	commands [][]any
}

func (f *fakeRedis) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if r.Header.Get("Authorization") != "Bearer token" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"unauthorized"}`)
		return
	}

	var cmd []any
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)

	switch cmd[0] {
	case "SET":
		key := cmd[1].(string)
		if _, held := f.values[key]; held {
			fmt.Fprint(w, `{"result":null}`)
			return
		}
		f.values[key] = cmd[2].(string)
		fmt.Fprint(w, `{"result":"OK"}`)
	case "EVAL":
		key := cmd[3].(string)
		if f.values[key] == cmd[4].(string) {
			delete(f.values, key)
			fmt.Fprint(w, `{"result":1}`)
			return
		}
		fmt.Fprint(w, `{"result":0}`)
	default:
		fmt.Fprint(w, `{"error":"unsupported"}`)
	}
}

func newFakeClient(t *testing.T) (*Client, *fakeRedis) {
	t.Helper()

	fake := &fakeRedis{values: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "token"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, fake
}

func TestLockIsExclusiveUntilReleased(t *testing.T) {
	t.Parallel()

	client, fake := newFakeClient(t)
	lock := NewLock(client)
	ctx := context.Background()

	release, ok, err := lock.Acquire(ctx, "expiry-sweep", 90*time.Second)
	if err != nil || !ok {
		t.Fatalf("first Acquire() ok=%v err=%v", ok, err)
	}

	if _, ok, err := lock.Acquire(ctx, "expiry-sweep", 90*time.Second); err != nil || ok {
		t.Fatalf("second Acquire() ok=%v err=%v, want held", ok, err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release() error = %v", err)
	}
	if _, ok, err := lock.Acquire(ctx, "expiry-sweep", time.Second); err != nil || !ok {
		t.Fatalf("Acquire() after release ok=%v err=%v", ok, err)
	}

	first := fake.commands[0]
	if first[1] != "kcart:lock:expiry-sweep" || first[3] != "NX" || first[4] != "EX" {
		t.Fatalf("unexpected SET command: %#v", first)
	}
	if first[5] != float64(90) {
		t.Fatalf("ttl = %v, want 90", first[5])
	}
}

func TestClientReportsRedisErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGTYPE"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "token"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.Do(context.Background(), "GET", "k"); err == nil || err.Error() != "WRONGTYPE" {
		t.Fatalf("Do() error = %v, want WRONGTYPE", err)
	}
}

func TestNewClientRequiresURLAndToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Token: "t"}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(Config{URL: "https://example.upstash.io"}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]int64{
		0:                       1,
		500 * time.Millisecond:  1,
		time.Second:             1,
		1500 * time.Millisecond: 2,
	}
	for in, want := range cases {
		if got := ttlSeconds(in); got != want {
			t.Fatalf("ttlSeconds(%v) = %d, want %d", in, got, want)
		}
	}
}
