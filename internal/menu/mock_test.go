package menu

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/menuscan/menuscan/internal/model"
	"github.com/menuscan/menuscan/internal/scrape"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, targetURL string) (*scrape.Page, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scrape.Page), args.Error(1)
}

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractMenu(ctx context.Context, page *scrape.Page, day string) ([]model.MenuItem, error) {
	args := m.Called(ctx, page, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MenuItem), args.Error(1)
}

func (m *mockExtractor) ResolveRestaurantName(ctx context.Context, page *scrape.Page) string {
	args := m.Called(ctx, page)
	return args.String(0)
}
