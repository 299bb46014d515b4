// Package search discovers product discussion threads and review videos
// through public endpoints. Both searches are best-effort: they depend on
// unauthenticated access and may return nothing under rate limiting.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Result is one discovered external source.
type Result struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	URL      string `json:"url"`
	Score    int    `json:"score,omitempty"`
	Comments int    `json:"comments,omitempty"`
	Source   string `json:"source"`
}

// Client performs the external searches.
type Client struct {
	httpClient *http.Client

	redditBaseURL  string
	youtubeBaseURL string
}

func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		redditBaseURL:  "https://www.reddit.com",
		youtubeBaseURL: "https://www.youtube.com",
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string `json:"title"`
				Selftext    string `json:"selftext"`
				Permalink   string `json:"permalink"`
				Score       int    `json:"score"`
				NumComments int    `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// SearchReddit queries Reddit's public JSON search endpoint. Post bodies
// are truncated; threads worth full ingestion should be fetched by the
// caller.
func (c *Client) SearchReddit(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}
	endpoint := fmt.Sprintf("%s/search.json?q=%s&limit=%d", c.redditBaseURL, url.QueryEscape(query), limit)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("reddit search: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode reddit listing: %w", err)
	}

	var results []Result
	for _, child := range listing.Data.Children {
		post := child.Data
		results = append(results, Result{
			Title:    post.Title,
			Text:     truncate(post.Selftext, 500),
			URL:      "https://www.reddit.com" + post.Permalink,
			Score:    post.Score,
			Comments: post.NumComments,
			Source:   "reddit",
		})
	}
	return results, nil
}

var (
	videoIDRe    = regexp.MustCompile(`"videoId":"([a-zA-Z0-9_-]{11})"`)
	videoTitleRe = regexp.MustCompile(`"title":\{"runs":\[\{"text":"([^"]+)"\}\]`)
)

// SearchYouTube scrapes the results page for video ids and titles. The
// page is JavaScript-heavy, so this only sees what the initial payload
// embeds; fragile by nature.
func (c *Client) SearchYouTube(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 3
	}
	endpoint := c.youtubeBaseURL + "/results?search_query=" + url.QueryEscape(query)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	ids := videoIDRe.FindAllStringSubmatch(string(body), -1)
	titles := videoTitleRe.FindAllStringSubmatch(string(body), -1)

	n := len(ids)
	if len(titles) < n {
		n = len(titles)
	}
	if limit < n {
		n = limit
	}

	var results []Result
	for i := 0; i < n; i++ {
		results = append(results, Result{
			Title:  titles[i][1],
			Text:   "Video result for " + query,
			URL:    "https://www.youtube.com/watch?v=" + ids[i][1],
			Source: "youtube",
		})
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
