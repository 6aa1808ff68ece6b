package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/menuscan/menuscan/internal/scrape"
	"github.com/menuscan/menuscan/pkg/anthropic"
)

const nameSystemPrompt = `You identify the business name of a restaurant from its web page content. Reply with the bare name only, no quotes, no commentary. If the name cannot be determined, reply with exactly: unknown`

// nameContentChars bounds the page text sent for name resolution; a page
// header is plenty.
const nameContentChars = 3000

// ResolveRestaurantName resolves a human-readable restaurant name for the
// page. It never fails outward: a service error, an over-long answer or the
// literal "unknown" all degrade to the hostname fallback, because name
// resolution must never abort the overall request.
func (e *Extractor) ResolveRestaurantName(ctx context.Context, page *scrape.Page) string {
	name, err := e.requestName(ctx, page)
	if err != nil {
		zap.L().Warn("extract: name resolution failed, using hostname",
			zap.String("url", page.URL),
			zap.Error(err),
		)
		return HostnameFallback(page.URL)
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) >= 100 || strings.EqualFold(name, "unknown") {
		return HostnameFallback(page.URL)
	}
	return name
}

func (e *Extractor) requestName(ctx context.Context, page *scrape.Page) (string, error) {
	prompt := fmt.Sprintf("Page URL: %s\n\nPage text:\n%s",
		page.URL, truncate(page.Text, nameContentChars))

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.opts.Model,
		MaxTokens: 64,
		System:    []anthropic.SystemBlock{{Text: nameSystemPrompt}},
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(e.opts.Model, "name")
	return resp.Text(), nil
}

// HostnameFallback derives a deterministic name from the page's hostname:
// a leading "www." is stripped and only the first DNS label is kept
// ("www.restaurace.cz" → "restaurace"). Unparseable input is returned as-is;
// upstream validation guarantees an http(s) URL in practice.
func HostnameFallback(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	return host
}
