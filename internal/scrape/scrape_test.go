package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>Restaurace U Lípy</title>
<style>body { color: red; }</style></head>
<body><nav><a href="/">Úvod</a></nav>
<h1>Polední menu</h1>
<p>Pondělí: polévka &amp; guláš 120,- Kč</p>
<script>console.log("hi")</script>
<footer>© 2025</footer></body></html>`

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(Options{})
}

func TestFetch_StripsToPlaintext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, srv.URL, page.URL)
	assert.Equal(t, "Restaurace U Lípy", page.Title)
	assert.Contains(t, page.Text, "Polední menu")
	assert.Contains(t, page.Text, "polévka & guláš 120,- Kč")
	assert.NotContains(t, page.Text, "console.log")
	assert.NotContains(t, page.Text, "Úvod")
	assert.NotContains(t, page.Text, "<p>")
	assert.Contains(t, page.HTML, "<h1>")
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("not found ", 20), http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestFetch_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyPage)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestFetch_CaptchaBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Please solve this reCAPTCHA to continue " + strings.Repeat("x", 200) + "</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestStripHTML_Entities(t *testing.T) {
	out := StripHTML(`<p>kuře &amp; hranolky&nbsp;&lt;100 Kč&gt;</p>`)
	assert.Equal(t, `kuře & hranolky <100 Kč>`, out)
}

func TestDetectBlock_Cloudflare(t *testing.T) {
	resp := &http.Response{StatusCode: 403, Header: http.Header{"Cf-Ray": []string{"abc"}}}
	blocked, kind := DetectBlock(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, kind)
}

func TestDetectBlock_CleanPage(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	blocked, _ := DetectBlock(resp, []byte(samplePage))
	assert.False(t, blocked)
}
