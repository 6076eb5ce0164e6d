package lib

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

var calendarHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// NewCalendarHTTPClient replaces the feed client, used by tests.
func NewCalendarHTTPClient(c *http.Client) {
	calendarHTTPClient = c
}

// FetchCalendar retrieves a calendar document over plain HTTP GET. Feeds are
// public exports and need no authentication.
func FetchCalendar(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "smartcheckin/1.0")

	res, err := calendarHTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("calendar feed returned status %d", res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
