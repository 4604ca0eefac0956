// Package sdk is a small client for the Gatekeep session service. It
// carries the session cookie across calls via a cookie jar, so a Login
// followed by Me behaves like a browser session.
package sdk

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client is a client for the Gatekeep session service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a service client with a fresh cookie jar. Each
// Client is one logical browser session.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}
