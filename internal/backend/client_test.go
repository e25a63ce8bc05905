package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/echo", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, staticToken("tok"))
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Do(context.Background(), http.MethodPost, "/api/echo", map[string]string{"name": "go"}, &out))
	assert.Equal(t, "go", out.Name)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("tok"))
	err := c.Do(context.Background(), http.MethodGet, "/api/x", nil, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Contains(t, se.Body, "forbidden")
}

func TestClient_NoIdentity(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second, staticToken(""))
	assert.ErrorIs(t, c.Do(context.Background(), http.MethodGet, "/", nil, nil), domain.ErrNoIdentity)
}

func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, 50*time.Millisecond, staticToken("tok"))
	assert.Error(t, c.Do(context.Background(), http.MethodGet, "/", nil, nil))
}
