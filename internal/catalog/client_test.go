package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

func TestFetchPage(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"title":"Shirt","description":"cotton","price":19.99,
			 "images":["https://img/1.png"],"category":{"id":1,"name":"Clothes","image":"https://img/c.png"}}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/v1/", time.Second)
	page, err := c.FetchPage(context.Background(), 20, 10)
	require.NoError(t, err)

	assert.Equal(t, "limit=10&offset=20", gotQuery)
	assert.True(t, page.OK())
	assert.Equal(t, 20, page.Offset)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Shirt", page.Items[0].Title)
	assert.Equal(t, "Clothes", page.Items[0].Category.Name)
	assert.InDelta(t, 19.99, page.Items[0].Price, 0.0001)
}

func TestFetchPageNonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL, time.Second).FetchPage(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.False(t, page.OK())
	assert.Equal(t, http.StatusInternalServerError, page.StatusCode)
	assert.True(t, page.Empty())
}

func TestFetchPageDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).FetchPage(context.Background(), 0, 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrCancelled))
}

func TestFetchPageCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := NewClient(srv.URL, 5*time.Second).FetchPage(ctx, 0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"ok", http.StatusOK, nil},
		{"no content", http.StatusNoContent, nil},
		{"server error", http.StatusBadGateway, domain.ErrExternalCallFailed},
		{"not found", http.StatusNotFound, domain.ErrExternalCallFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewPinger(srv.URL, time.Second).Ping(context.Background())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewPinger(url, time.Second).Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrExternalCallFailed)
}

func TestPingCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPinger("http://127.0.0.1:1", time.Second).Ping(ctx)
	assert.ErrorIs(t, err, domain.ErrCancelled)
}
