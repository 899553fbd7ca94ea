package contentsafety

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contentsafety/text:analyze" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "k" {
			t.Errorf("missing key header")
		}
		fmt.Fprint(w, `{"categoriesAnalysis":[{"category":"Hate","severity":2},{"category":"Violence","severity":0}]}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{Endpoint: server.URL, Key: "k"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.WithHTTPClient(server.Client())

	got, err := client.Analyze(context.Background(), "texto")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got["Hate"] != 2 || got["Violence"] != 0 || len(got) != 2 {
		t.Fatalf("Analyze() = %v", got)
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	if (Config{Endpoint: "https://x"}).Enabled() {
		t.Fatal("Enabled() = true without key")
	}
	if !(Config{Endpoint: "https://x", Key: "k"}).Enabled() {
		t.Fatal("Enabled() = false with endpoint and key")
	}
}
