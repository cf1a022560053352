package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Client fetches owner pages and stages charges. It keeps the last fetched
// page, mirroring a browser tab: reads apply to wherever the client
// currently is.
type Client struct {
	baseURL string
	token   string
	client  *http.Client

	page *Page
}

// NewClient constructs a portal client for the given base URL. The token,
// when set, is sent as a bearer credential on every request.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("portal: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Page is one fetched owner page with its parsed document.
type Page struct {
	Route string
	doc   *goquery.Document
}

// Navigate fetches the route and makes it the client's current page.
func (c *Client) Navigate(ctx context.Context, route string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route, nil)
	if err != nil {
		return nil, fmt.Errorf("portal: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal: fetch %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("portal: fetch %s: http %d", route, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("portal: parse %s: %w", route, err)
	}

	c.page = &Page{Route: route, doc: doc}
	return c.page, nil
}

// CurrentPage returns the last navigated page, or nil before the first
// navigation.
func (c *Client) CurrentPage() *Page {
	return c.page
}

// CurrentRoute returns the route of the current page, or "".
func (c *Client) CurrentRoute() string {
	if c.page == nil {
		return ""
	}
	return c.page.Route
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
