package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"go.elastic.co/apm/module/apmhttp"
)

// maximum number of body bytes kept in a StatusError
const maxErrorBody = 512

// TokenSource bearer token of the current identity, empty when there is none
type TokenSource interface {
	Token() string
}

// TokenFunc adapt a function to TokenSource
type TokenFunc func() string

// Token implement TokenSource
func (f TokenFunc) Token() string {
	return f()
}

// StatusError the backend answered with a non 2xx status
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client JSON client of the CMS backend API
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient .
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    apmhttp.WrapClient(&http.Client{Timeout: timeout}),
		tokens:  tokens,
	}
}

// Do send body as JSON and decode the response into out, either may be nil
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	token := c.tokens.Token()
	if token == "" {
		return domain.ErrNoIdentity
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: res.StatusCode, Body: string(msg)}
	}
	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
