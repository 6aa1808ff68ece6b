package menu

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menuscan/menuscan/internal/classify"
	"github.com/menuscan/menuscan/internal/model"
	"github.com/menuscan/menuscan/internal/scrape"
)

// Extractor is the reasoning-service boundary the orchestrator depends on.
type Extractor interface {
	ExtractMenu(ctx context.Context, page *scrape.Page, day string) ([]model.MenuItem, error)
	ResolveRestaurantName(ctx context.Context, page *scrape.Page) string
}

// Store is the date-scoped cache boundary.
type Store interface {
	Get(ctx context.Context, url, date string) (*model.RestaurantMenu, error)
	Put(ctx context.Context, url, date string, menu *model.RestaurantMenu) error
}

// Service orchestrates a menu request: cache lookup → classifier gate →
// extraction → name resolution → filtering → cache write → response.
type Service struct {
	fetcher    scrape.Fetcher
	classifier *classify.Classifier
	extractor  Extractor
	cache      Store
}

// NewService wires the orchestrator.
func NewService(fetcher scrape.Fetcher, classifier *classify.Classifier, extractor Extractor, cache Store) *Service {
	return &Service{
		fetcher:    fetcher,
		classifier: classifier,
		extractor:  extractor,
		cache:      cache,
	}
}

// GetMenu resolves the menu for (url, date) and applies the caller's
// preferences to the response. The cache always stores the unfiltered item
// set with no recommendation, so one entry serves every preference set;
// preferences are a view transform, never part of the cache key.
func (s *Service) GetMenu(ctx context.Context, targetURL, date string, prefs *model.Preferences) (*model.RestaurantMenu, error) {
	cached, err := s.cache.Get(ctx, targetURL, date)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		zap.L().Info("menu: cache hit",
			zap.String("url", targetURL),
			zap.String("date", date),
		)
		if !prefs.IsZero() {
			return viewWithPreferences(cached, prefs), nil
		}
		return cached, nil
	}

	page, err := s.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	result := &model.RestaurantMenu{
		Date:      date,
		DayOfWeek: model.CzechDay(date),
		MenuItems: []model.MenuItem{},
	}

	if !s.classifier.HasDailyMenuIndicators(page.Text) {
		// No daily-menu claim on the page; resolve the name only and skip
		// the costly extraction call.
		zap.L().Info("menu: no daily menu indicators",
			zap.String("url", targetURL),
		)
		result.RestaurantName = s.extractor.ResolveRestaurantName(ctx, page)
		s.persist(ctx, targetURL, date, result)
		return result, nil
	}

	// Extraction and name resolution are independent; run them concurrently.
	var items []model.MenuItem
	var name string
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.extractor.ExtractMenu(gCtx, page, result.DayOfWeek)
		return err
	})
	g.Go(func() error {
		name = s.extractor.ResolveRestaurantName(gCtx, page)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.RestaurantName = name
	if items != nil {
		result.MenuItems = items
	}
	result.DailyMenu = len(items) > 0

	s.persist(ctx, targetURL, date, result)

	if !prefs.IsZero() {
		return viewWithPreferences(result, prefs), nil
	}
	return result, nil
}

// persist writes the unfiltered menu to the cache. A write failure is logged
// but does not fail the request: the response data is already computed and
// the next request simply recomputes.
func (s *Service) persist(ctx context.Context, targetURL, date string, menu *model.RestaurantMenu) {
	if err := s.cache.Put(ctx, targetURL, date, menu); err != nil {
		zap.L().Warn("menu: cache write failed",
			zap.String("url", targetURL),
			zap.String("date", date),
			zap.Error(err),
		)
	}
}

// viewWithPreferences derives a response from a canonical menu without
// mutating it: filtered items plus a recommendation.
func viewWithPreferences(menu *model.RestaurantMenu, prefs *model.Preferences) *model.RestaurantMenu {
	filtered := ApplyPreferences(menu.MenuItems, prefs)
	view := *menu
	view.MenuItems = filtered
	view.RecommendedMeal = RecommendMeal(filtered)
	return &view
}
