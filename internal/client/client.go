package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/weatherornot/internal/weather"
)

// Client talks to the weatherornot backend API. It implements both the
// saved-locations persistence and the weather lookup used by the dashboard.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Reason returns the backend's message.
func (e *APIError) Reason() string {
	return e.Message
}

// Unwrap maps 404 answers from the weather endpoint onto weather.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return weather.ErrNotFound
	}
	return nil
}

// List returns the saved locations, newest first. Entries may be objects
// with a "city" field or bare strings.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var raw []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/saved-locations", nil, &raw); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw))
	for _, item := range raw {
		var obj struct {
			City string `json:"city"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			names = append(names, obj.City)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, fmt.Errorf("unexpected saved location entry %s", item)
		}
		names = append(names, s)
	}
	return names, nil
}

// Add saves name.
func (c *Client) Add(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]string{"city": name})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/saved-locations", body, nil)
}

// Remove deletes name. A name the backend does not know counts as removed.
func (c *Client) Remove(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodDelete, "/api/saved-locations/"+url.PathEscape(name), nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil
	}
	return err
}

// Current returns the current weather for name.
func (c *Client) Current(ctx context.Context, name string) (weather.Snapshot, error) {
	var snap weather.Snapshot
	path := "/api/weather/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, &snap); err != nil {
		return weather.Snapshot{}, err
	}
	if snap.City == "" {
		return weather.Snapshot{}, fmt.Errorf("%w: %s returned no city", weather.ErrMalformed, path)
	}
	return snap, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response from %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}
