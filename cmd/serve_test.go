package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuscan/menuscan/internal/cache"
	"github.com/menuscan/menuscan/internal/extract"
	"github.com/menuscan/menuscan/internal/scrape"
)

func TestValidateURL(t *testing.T) {
	assert.NoError(t, validateURL("https://www.restaurace.cz/menu"))
	assert.NoError(t, validateURL("http://ulipy.cz"))

	assert.Error(t, validateURL(""))
	assert.Error(t, validateURL("ftp://example.com"))
	assert.Error(t, validateURL("restaurace.cz"))
	assert.Error(t, validateURL("https://"))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"fetch failed", eris.Wrap(scrape.ErrFetchFailed, "status 503"), http.StatusBadGateway},
		{"empty page", scrape.ErrEmptyPage, http.StatusBadGateway},
		{"extraction failed", extract.ErrExtractionFailed, http.StatusUnprocessableEntity},
		{"invalid json", eris.Wrap(extract.ErrInvalidJSON, "empty response"), http.StatusUnprocessableEntity},
		{"invalid schema", extract.ErrInvalidSchema, http.StatusUnprocessableEntity},
		{"cache not initialized", cache.ErrNotInitialized, http.StatusInternalServerError},
		{"unknown", eris.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func postMenu(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	// Validation failures short-circuit before the orchestrator is touched.
	handler := menuHandler(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/menu", strings.NewReader(body))
	handler(rec, req)
	return rec
}

func TestMenuHandler_RejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{`},
		{"missing url", `{}`},
		{"bad scheme", `{"url": "ftp://example.com"}`},
		{"bad date", `{"url": "https://example.com", "date": "24.11.2025"}`},
		{"negative price", `{"url": "https://example.com", "preferences": {"price": -10}}`},
		{"zero price", `{"url": "https://example.com", "preferences": {"price": 0}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postMenu(t, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}
