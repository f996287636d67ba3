package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/warmup/internal/domain"
)

const (
	// DefaultTimeout bounds a single page request
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum accepted page body (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is sent with every request
	UserAgent = "warmup-sync/1.0"
)

// Client fetches product pages from the catalog source
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a catalog client for baseURL (ex: https://api.escuelajs.co/api/v1).
// If timeout is 0, DefaultTimeout is used.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// PageURL builds the request URL for one page
func (c *Client) PageURL(offset, limit int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.baseURL + "/products?" + q.Encode()
}

// FetchPage requests limit items starting at offset.
// Context cancellation is reported as domain.ErrCancelled.
func (c *Client) FetchPage(ctx context.Context, offset, limit int) (Page, error) {
	page := Page{Offset: offset}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(offset, limit), http.NoBody)
	if err != nil {
		return page, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return page, wrapContextErr(ctx, fmt.Errorf("failed to fetch page at offset %d: %w", offset, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	page.StatusCode = resp.StatusCode
	if !page.OK() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		return page, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return page, wrapContextErr(ctx, fmt.Errorf("failed to read page body: %w", err))
	}
	if int64(len(body)) > MaxResponseSize {
		return page, fmt.Errorf("page body exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	if err := json.Unmarshal(body, &page.Items); err != nil {
		return page, fmt.Errorf("failed to decode page at offset %d: %w", offset, err)
	}
	return page, nil
}

// wrapContextErr turns failures caused by ctx into domain.ErrCancelled
func wrapContextErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	return err
}
