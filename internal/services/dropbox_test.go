package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcampolo/reeldeck/internal/shared"
)

func newTestProvider(t *testing.T, handler http.Handler) (*DropboxProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := NewDropboxProvider(shared.DropboxConfig{
		AppKey:      "key",
		AppSecret:   "secret",
		AccessToken: "token123",
	}, WithBaseURLs(server.URL, server.URL), WithHTTPClient(server.Client()))

	return provider, server
}

func TestDropboxList(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/files/list_folder" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer token123" {
			t.Errorf("Authorization = %q, want bearer token", auth)
		}

		resp := map[string]any{
			"entries": []map[string]any{
				{
					".tag":         "file",
					"name":         "clip.mp4",
					"path_display": "/videos/clip.mp4",
					"size":         float64(1024),
					"media_info": map[string]any{
						"metadata": map[string]any{".tag": "video", "duration": float64(83000)},
					},
				},
				{".tag": "folder", "name": "sub", "path_display": "/videos/sub"},
				{".tag": "file", "name": "other.mov", "path_lower": "/videos/other.mov"},
			},
			"cursor":   "",
			"has_more": false,
		}
		json.NewEncoder(w).Encode(resp)
	})

	provider, _ := newTestProvider(t, handler)

	descriptors, err := provider.List(context.Background(), "/videos")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("List() returned %d descriptors, want 2 (folders skipped)", len(descriptors))
	}
	if descriptors[0].Path != "/videos/clip.mp4" {
		t.Errorf("Path = %q, want /videos/clip.mp4", descriptors[0].Path)
	}
	if descriptors[0].Size != 1024 {
		t.Errorf("Size = %d, want 1024", descriptors[0].Size)
	}
	if descriptors[0].ProviderMetadata == nil {
		t.Error("ProviderMetadata should retain the raw entry")
	}
	if descriptors[1].Path != "/videos/other.mov" {
		t.Errorf("Path = %q, want path_lower fallback", descriptors[1].Path)
	}
}

func TestDropboxListPagination(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/2/files/list_folder":
			json.NewEncoder(w).Encode(map[string]any{
				"entries":  []map[string]any{{".tag": "file", "name": "a.mp4", "path_display": "/a.mp4"}},
				"cursor":   "cursor-1",
				"has_more": true,
			})
		case "/2/files/list_folder/continue":
			var req struct {
				Cursor string `json:"cursor"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if req.Cursor != "cursor-1" {
				t.Errorf("cursor = %q, want cursor-1", req.Cursor)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"entries":  []map[string]any{{".tag": "file", "name": "b.mp4", "path_display": "/b.mp4"}},
				"has_more": false,
			})
		default:
			http.NotFound(w, r)
		}
	})

	provider, _ := newTestProvider(t, handler)

	descriptors, err := provider.List(context.Background(), "/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(descriptors) != 2 {
		t.Errorf("List() returned %d descriptors, want 2 across pages", len(descriptors))
	}
	if calls != 2 {
		t.Errorf("made %d requests, want 2", calls)
	}
}

func TestDropboxErrorMapping(t *testing.T) {
	tc := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "409 path not found",
			status:  http.StatusConflict,
			body:    `{"error_summary": "path/not_found/..."}`,
			wantErr: shared.ErrPathNotFound,
		},
		{
			name:    "401 unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error_summary": "invalid_access_token/"}`,
			wantErr: shared.ErrUnauthorized,
		},
		{
			name:    "429 rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error_summary": "too_many_requests/"}`,
			wantErr: shared.ErrRateLimited,
		},
		{
			name:    "500 generic",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: shared.ErrAPIRequest,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			provider, _ := newTestProvider(t, handler)

			_, err := provider.List(context.Background(), "/videos")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("List() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDropboxTemporaryLink(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/files/get_temporary_link" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"link": "https://dl.example.com/clip.mp4?tk=abc"})
	})
	provider, _ := newTestProvider(t, handler)

	link, err := provider.TemporaryLink(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("TemporaryLink() error = %v", err)
	}
	if link != "https://dl.example.com/clip.mp4?tk=abc" {
		t.Errorf("link = %q", link)
	}
}

func TestDropboxTemporaryLinkFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error_summary": "path/not_found/"}`))
	})
	provider, _ := newTestProvider(t, handler)

	_, err := provider.TemporaryLink(context.Background(), "/gone.mp4")
	if !errors.Is(err, shared.ErrStreamUnavailable) {
		t.Errorf("TemporaryLink() error = %v, want ErrStreamUnavailable", err)
	}
}

func TestDropboxThumbnailURL(t *testing.T) {
	provider := NewDropboxProvider(shared.DropboxConfig{AccessToken: "t"})

	got := provider.ThumbnailURL("/videos/clip.mp4")
	if !strings.Contains(got, "get_thumbnail_v2") {
		t.Errorf("ThumbnailURL = %q, want get_thumbnail_v2 endpoint", got)
	}
	if !strings.Contains(got, "clip.mp4") {
		t.Errorf("ThumbnailURL = %q, want path embedded", got)
	}
	// Deterministic: same path, same URL.
	if provider.ThumbnailURL("/videos/clip.mp4") != got {
		t.Error("ThumbnailURL should be deterministic")
	}
}

func TestDropboxNotAuthenticated(t *testing.T) {
	provider := NewDropboxProvider(shared.DropboxConfig{})
	_, err := provider.List(context.Background(), "/")
	if !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("List() error = %v, want ErrNotAuthenticated", err)
	}
}
