package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	logx "relaybot/pkg/logx"
)

const searchPayload = `{
  "items": [
    {
      "id": {"videoId": "abc123xyz"},
      "snippet": {
        "title": "New upload",
        "description": "First look",
        "channelTitle": "Creator",
        "publishedAt": "2026-02-01T12:30:00Z",
        "thumbnails": {"high": {"url": "https://img.example/hq.jpg"}}
      }
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key", logx.Nop())
	c.baseURL = srv.URL
	return c
}

func TestLatestParsesNewestItem(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchPayload))
	})

	item, err := c.Latest(context.Background(), "UCsource")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if item == nil {
		t.Fatal("item = nil, want parsed item")
	}
	if item.ID != "abc123xyz" || item.Title != "New upload" || item.ChannelTitle != "Creator" {
		t.Fatalf("item = %+v", item)
	}
	if item.Thumbnail != "https://img.example/hq.jpg" {
		t.Fatalf("thumbnail = %q", item.Thumbnail)
	}
	want := time.Date(2026, 2, 1, 12, 30, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(want) {
		t.Fatalf("published = %v, want %v", item.PublishedAt, want)
	}
	if item.URL() != "https://youtu.be/abc123xyz" {
		t.Fatalf("url = %q", item.URL())
	}

	params, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	for key, want := range map[string]string{
		"key": "test-key", "channelId": "UCsource", "order": "date", "maxResults": "1",
	} {
		if got := params.Get(key); got != want {
			t.Fatalf("query param %s = %q, want %q", key, got, want)
		}
	}
}

func TestLatestEmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"items": []}`))
	})

	item, err := c.Latest(context.Background(), "UCempty")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if item != nil {
		t.Fatalf("item = %+v, want nil for empty source", item)
	}
}

func TestLatestClientErrorDoesNotRetry(t *testing.T) {
	var hits int
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := c.Latest(context.Background(), "UCdenied"); err == nil {
		t.Fatal("want error on HTTP 403")
	}
	if hits != 1 {
		t.Fatalf("hits = %d, 4xx must not be retried", hits)
	}
}
