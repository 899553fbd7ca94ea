package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestUpstash(t *testing.T, handler func(cmd []any) string, opts ...StoreOption) (*UpstashRedisStore, *[]any) {
	t.Helper()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, handler(gotCommand))
	}))
	t.Cleanup(server.Close)

	opts = append([]StoreOption{WithHTTPClient(server.Client())}, opts...)
	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: server.URL, Token: "token"}, opts...)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	return store, &gotCommand
}

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "civic:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "civic:session:abc")
	}
}

func TestUpstashRedisStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashRedisStoreSaveSetsExpiry(t *testing.T) {
	t.Parallel()

	store, gotCommand := newTestUpstash(t, func([]any) string { return `{"result":"OK"}` }, WithTTL(90*time.Second))

	st := NewSessionState("session-1", "user-1", "chat", time.Now())
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cmd := *gotCommand
	if len(cmd) != 5 {
		t.Fatalf("unexpected command: %#v", cmd)
	}
	if cmd[0] != "SET" || cmd[1] != "civic:session:session-1" {
		t.Fatalf("command = %v %v, want SET civic:session:session-1", cmd[0], cmd[1])
	}
	if cmd[3] != "EX" || cmd[4] != float64(90) {
		t.Fatalf("expiry = %v %v, want EX 90", cmd[3], cmd[4])
	}
}

func TestUpstashRedisStoreSaveRejectsInvalidSession(t *testing.T) {
	t.Parallel()

	store, _ := newTestUpstash(t, func([]any) string { return `{"result":"OK"}` })

	st := NewSessionState("session-1", "", "chat", time.Now())
	if err := store.Save(context.Background(), st); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("Save() error = %v, want ErrEmptyUserID", err)
	}
}

func TestUpstashRedisStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	seed := NewSessionState("session-2", "user-2", "chat", time.Now())
	seed.AppendTurn("hola", "hola, ¿en qué te ayudo?", "general", time.Now())
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	store, gotCommand := newTestUpstash(t, func([]any) string { return fmt.Sprintf(`{"result":%s}`, encoded) })

	st, err := store.Load(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.UserID != "user-2" || len(st.History) != 2 {
		t.Fatalf("Load() = %+v, want user-2 with 2 messages", st)
	}
	if cmd := *gotCommand; cmd[0] != "GET" || cmd[1] != "civic:session:session-2" {
		t.Fatalf("command = %v, want GET civic:session:session-2", cmd)
	}
}

func TestUpstashRedisStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store, _ := newTestUpstash(t, func([]any) string { return `{"result":null}` })

	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestUpstashRedisStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	store, _ := newTestUpstash(t, func([]any) string { return `{"error":"WRONGPASS"}` })

	if err := store.Delete(context.Background(), "session-3"); err == nil {
		t.Fatal("Delete() error = nil, want redis error")
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "s"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}

	st := NewSessionState("s", "u", "chat", time.Now())
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.UserID != "u" {
		t.Fatalf("Load().UserID = %q, want %q", got.UserID, "u")
	}

	if err := store.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after Delete error = %v, want ErrStateNotFound", err)
	}
}
