package framex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ProviderError wraps any failure talking to the FrameX API. The session
// controller treats all provider failures the same way (transient, per-user,
// never fatal), so the cause is carried only for logging.
type ProviderError struct {
	Video string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("framex: video %q: %v", e.Video, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// VideoInfo is the subset of the FrameX video document the service needs.
type VideoInfo struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Frames int    `json:"frames"`
}

// Client talks to a FrameX API server. The API exposes video metadata at
// video/<name>/ and individual frame images at video/<name>/frame/<n>/.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the FrameX API at baseURL. timeout bounds
// each metadata request; frame URLs are constructed locally and never
// dereferenced by this client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// FrameCount fetches the video document and returns its frame count.
// Network failures, non-200 responses, malformed bodies, and nonsensical
// frame counts all come back as a *ProviderError.
func (c *Client) FrameCount(ctx context.Context, video string) (int, error) {
	reqURL := c.baseURL + "/video/" + url.PathEscape(video) + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, &ProviderError{Video: video, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &ProviderError{Video: video, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &ProviderError{Video: video, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var info VideoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, &ProviderError{Video: video, Err: fmt.Errorf("decoding video document: %w", err)}
	}
	if info.Frames < 1 {
		return 0, &ProviderError{Video: video, Err: fmt.Errorf("video document reports %d frames", info.Frames)}
	}

	return info.Frames, nil
}

// FrameURL returns the fetchable image URL for one frame of a video. Pure
// construction: the URL is handed to the presentation layer, which is
// responsible for dereferencing it.
func (c *Client) FrameURL(video string, frame int) string {
	return c.baseURL + "/video/" + url.PathEscape(video) + "/frame/" + strconv.Itoa(frame) + "/"
}
