// Package arxiv fetches bibliographic metadata from the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/paperid"
)

const (
	// DefaultEndpoint is the arXiv query API.
	DefaultEndpoint = "http://export.arxiv.org/api/query"
	// DefaultTimeout bounds a single metadata request.
	DefaultTimeout = 10 * time.Second
	// UnknownTitle is used when no usable entry could be fetched.
	UnknownTitle = "Unknown Title"
)

// Metadata is the title and abstract of one paper.
type Metadata struct {
	Title    string
	Abstract string
}

// Unknown is the sentinel returned when a fetch fails.
func Unknown() Metadata { return Metadata{Title: UnknownTitle} }

// Client performs single-attempt lookups against the Atom endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a client. A zero timeout uses DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Fetch returns the title and abstract for id. Any failure is logged and
// the Unknown sentinel is returned instead, so a note can still be written.
func (c *Client) Fetch(ctx context.Context, id paperid.ID) Metadata {
	md, err := c.Lookup(ctx, id)
	if err != nil {
		c.logger.Warn("arxiv: metadata unavailable",
			slog.String("id", id.String()),
			slog.String("error", err.Error()))
		return Unknown()
	}
	return md
}

// Lookup performs the request and reports failures as RecordErrors
// wrapping apperr.ErrMetadataFetch.
func (c *Client) Lookup(ctx context.Context, id paperid.ID) (Metadata, error) {
	fail := func(err error) (Metadata, error) {
		return Metadata{}, apperr.Record("fetch", id.String(), fmt.Errorf("%w: %v", apperr.ErrMetadataFetch, err))
	}

	q := url.Values{}
	q.Set("id_list", id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fail(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("http %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return fail(fmt.Errorf("parse xml: %w", err))
	}
	if len(feed.Entries) == 0 {
		return fail(fmt.Errorf("no entry for %s", id))
	}

	entry := feed.Entries[0]
	return Metadata{
		Title:    collapse(entry.Title),
		Abstract: collapse(entry.Summary),
	}, nil
}

// collapse replaces newlines with spaces and trims the result.
func collapse(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// Atom feed structures for the arXiv API.

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomEntry struct {
	ID      string `xml:"http://www.w3.org/2005/Atom id"`
	Title   string `xml:"http://www.w3.org/2005/Atom title"`
	Summary string `xml:"http://www.w3.org/2005/Atom summary"`
}
