package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublishJSON(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotForward string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotForward = r.Header.Get("Upstash-Forward-X-Complaint-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"messageId":"msg_1"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.WithHTTPClient(server.Client())

	out, err := client.PublishJSON(context.Background(), "https://hooks.example/notify", map[string]string{"to": "a@b"}, map[string]string{
		"X-Complaint-Id": "c1",
	})
	if err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}
	if out.MessageID != "msg_1" {
		t.Fatalf("MessageID = %q, want msg_1", out.MessageID)
	}
	if gotPath != "/v2/publish/https://hooks.example/notify" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" || gotForward != "c1" || gotBody["to"] != "a@b" {
		t.Fatalf("auth=%q forward=%q body=%v", gotAuth, gotForward, gotBody)
	}
}

func TestPublishJSONHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "tok"}).WithHTTPClient(server.Client())
	if _, err := client.PublishJSON(context.Background(), "https://hooks.example", map[string]string{}, nil); err == nil {
		t.Fatal("PublishJSON() error = nil, want http error")
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("NewClient() error = nil, want missing token error")
	}
}
