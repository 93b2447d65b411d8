package mockhttp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func TestJSONRoute(t *testing.T) {
	url, closeFn := New().
		JSON("/api/thing", map[string]string{"name": "widget"}).
		BuildURL()
	defer closeFn()

	resp, err := http.Get(url + "/api/thing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "widget" {
		t.Errorf("body = %v", body)
	}
}

func TestDefaultStatus(t *testing.T) {
	url, closeFn := New().DefaultStatus(http.StatusTeapot).BuildURL()
	defer closeFn()

	resp, err := http.Get(url + "/unrouted")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}

func TestFlakyJSON(t *testing.T) {
	url, closeFn := New().
		FlakyJSON("/flaky", 2, http.StatusServiceUnavailable, http.StatusOK, map[string]bool{"ok": true}).
		BuildURL()
	defer closeFn()

	for i, want := range []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK} {
		resp, err := http.Get(url + "/flaky")
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("request %d status = %d, want %d", i, resp.StatusCode, want)
		}
	}
}

func TestCapture(t *testing.T) {
	builder := New()
	captured := builder.Capture()
	url, closeFn := builder.Status("/submit", http.StatusAccepted).BuildURL()
	defer closeFn()

	resp, err := http.Post(url+"/submit?kind=test", "application/json",
		bytes.NewReader([]byte(`{"value":42}`)))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if captured.Count() != 1 {
		t.Fatalf("captured %d requests", captured.Count())
	}
	last := captured.Last()
	if last.Method != http.MethodPost || last.Path != "/submit" {
		t.Errorf("captured %s %s", last.Method, last.Path)
	}
	if len(last.Query["kind"]) == 0 || last.Query["kind"][0] != "test" {
		t.Errorf("query = %v", last.Query)
	}
	var body struct{ Value int }
	if err := last.BodyJSON(&body); err != nil || body.Value != 42 {
		t.Errorf("body did not survive capture: %v %+v", err, body)
	}
}

func TestWildcardMatch(t *testing.T) {
	url, closeFn := New().
		Status("/api/v1/*", http.StatusOK).
		BuildURL()
	defer closeFn()

	resp, err := http.Get(url + "/api/v1/anything/below")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("wildcard did not match: %d", resp.StatusCode)
	}
}
