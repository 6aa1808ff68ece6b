// Package scrape fetches restaurant pages and reduces them to plaintext
// suitable for classification and extraction.
package scrape

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Fetch failure sentinels. ErrFetchFailed covers network errors, timeouts
// and error statuses; ErrEmptyPage covers bodies too small to hold a menu.
var (
	ErrFetchFailed = errors.New("scrape: fetch failed")
	ErrEmptyPage   = errors.New("scrape: empty page")
)

// Page is the fetched and cleaned content of one restaurant page.
type Page struct {
	URL   string
	Title string
	HTML  string
	Text  string
}

// Fetcher retrieves a page by URL.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*Page, error)
}

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	// RatePerSec limits outbound fetches; 0 disables the limiter.
	RatePerSec float64
}

// HTTPFetcher fetches HTML via net/http and strips it to plaintext. Free,
// no external services. JS-rendered pages are out of scope and surface as
// fetch failures via block detection.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with
// sensible defaults.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; MenuscanBot/1.0)"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 512 * 1024
	}

	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter:   limiter,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
	}
}

// Fetch retrieves a URL, detects anti-bot blocks, and strips the HTML to
// plaintext.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(ErrFetchFailed, err.Error())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "create request: %v", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "get %s: %v", targetURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, eris.Wrapf(ErrFetchFailed, "read body: %v", err)
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, eris.Wrapf(ErrFetchFailed, "blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Wrapf(ErrFetchFailed, "status %d", resp.StatusCode)
	}

	if len(body) == 0 {
		return nil, eris.Wrap(ErrEmptyPage, targetURL)
	}
	if len(strings.TrimSpace(string(body))) < 100 {
		return nil, eris.Wrap(ErrEmptyPage, targetURL)
	}

	html := string(body)
	return &Page{
		URL:   targetURL,
		Title: extractTitle(body),
		HTML:  html,
		Text:  StripHTML(html),
	}, nil
}

var titleRe = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)

// extractTitle pulls the <title> from HTML.
func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}

// StripHTML removes scripts/styles/nav/footer, strips tags, decodes entities,
// and collapses whitespace. The result is plaintext suitable for the
// classifier and for LLM extraction.
func StripHTML(html string) string {
	// Remove script, style, nav, footer blocks entirely.
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	// Strip remaining HTML tags.
	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	// Decode common HTML entities.
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	// Collapse whitespace: multiple spaces → single, multiple newlines → double.
	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
