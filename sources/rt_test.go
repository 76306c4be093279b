package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"volna/types"
)

func newRTServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/listing/news", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"title":"Первый сюжет","summary":"Описание","href":"/news/one","preview":"https://cdn.rt.test/1.jpg","published_at":"2026-08-27T10:00:00Z","duration":120},
			{"title":"Второй сюжет","href":"https://russian.rt.com/news/two","published_at":"2026-08-27T09:00:00Z"},
			{"title":"Дубликат","href":"/news/one"}
		]}`))
	})
	mux.HandleFunc("/api/video/one", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Первый сюжет","hls":"https://cdn.rt.test/one.m3u8","mp4":"https://cdn.rt.test/one.mp4","duration":120}`))
	})
	mux.HandleFunc("/api/video/blocked", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Закрытый сюжет","hls":"https://cdn.rt.test/blocked.m3u8","geo_blocked":true}`))
	})
	mux.HandleFunc("/api/video/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Без потока"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRTDiscover(t *testing.T) {
	srv := newRTServer(t)
	a := &RT{BaseURL: srv.URL}

	items, err := a.Discover(context.Background(), "news", 10)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dedupe, got %d", len(items))
	}
	if items[0].URL != "https://russian.rt.com/news/one" {
		t.Errorf("relative href not resolved: %q", items[0].URL)
	}
	if items[0].SourceKey != "rt:news" {
		t.Errorf("unexpected source key %q", items[0].SourceKey)
	}
	if items[0].DurationSec != 120 {
		t.Errorf("duration not mapped: %v", items[0].DurationSec)
	}
	if items[0].PublishedAt.IsZero() {
		t.Errorf("published_at not parsed")
	}
}

func TestRTDiscoverRespectsMax(t *testing.T) {
	srv := newRTServer(t)
	a := &RT{BaseURL: srv.URL}

	items, err := a.Discover(context.Background(), "news", 1)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestRTExtractMetadata(t *testing.T) {
	srv := newRTServer(t)
	a := &RT{BaseURL: srv.URL}

	meta, err := a.ExtractMetadata(context.Background(), "https://russian.rt.com/news/one")
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if meta.M3U8URL != "https://cdn.rt.test/one.m3u8" {
		t.Errorf("hls not preferred: %q", meta.M3U8URL)
	}
	if meta.MP4URL != "" {
		t.Errorf("both stream fields set")
	}
	if meta.Restricted {
		t.Errorf("unexpectedly restricted")
	}
}

func TestRTExtractMetadataGeoBlocked(t *testing.T) {
	srv := newRTServer(t)
	a := &RT{BaseURL: srv.URL}

	meta, err := a.ExtractMetadata(context.Background(), "https://russian.rt.com/news/blocked")
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if !meta.Restricted {
		t.Fatalf("expected restricted")
	}
	if meta.M3U8URL != "" || meta.MP4URL != "" {
		t.Errorf("restricted item must carry no stream URL")
	}
}

func TestRTExtractMetadataNoStream(t *testing.T) {
	srv := newRTServer(t)
	a := &RT{BaseURL: srv.URL}

	_, err := a.ExtractMetadata(context.Background(), "https://russian.rt.com/news/empty")
	if !errors.Is(err, types.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestRTExtractMetadataMissingVideo(t *testing.T) {
	srv := newRTServer(t)
	a := &RT{BaseURL: srv.URL}

	_, err := a.ExtractMetadata(context.Background(), "https://russian.rt.com/news/gone")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRTDiscoverUnreachable(t *testing.T) {
	srv := newRTServer(t)
	srv.Close()
	a := &RT{BaseURL: srv.URL}

	_, err := a.Discover(context.Background(), "news", 10)
	if !errors.Is(err, types.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestRTMatch(t *testing.T) {
	a := NewRT()
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://russian.rt.com/news/one", true},
		{"https://rt.com/news/one", true},
		{"https://tass.ru/obschestvo/1", false},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.raw, err)
		}
		if got := a.Match(u); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
