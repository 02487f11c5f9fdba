// Package favorites collects the favorites list from the configured page.
package favorites

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/browser"
	"github.com/JakeFAU/favsync/internal/failure"
)

// Page is the part of a browser session the scraper drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	FindAll(ctx context.Context, selector string) ([]browser.Element, error)
}

// Target names where the favorites live.
type Target struct {
	URL      string
	Selector string
}

// Scraper reads favorite items from a page.
type Scraper struct {
	page   Page
	target Target
	logger *zap.Logger
}

// NewScraper creates a Scraper bound to a session.
func NewScraper(page Page, target Target, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{page: page, target: target, logger: logger}
}

// Scrape returns the text of every matching element in document order.
// Duplicates are kept. An empty, non-nil slice means the page had no
// favorites; any failure is returned as a scrape-kind error.
func (s *Scraper) Scrape(ctx context.Context) ([]string, error) {
	if err := s.page.Navigate(ctx, s.target.URL); err != nil {
		return nil, failure.New(failure.KindScrape, "navigate", err)
	}

	elements, err := s.page.FindAll(ctx, s.target.Selector)
	if err != nil {
		return nil, failure.New(failure.KindScrape, "find favorites", err)
	}

	items := make([]string, 0, len(elements))
	for _, el := range elements {
		items = append(items, el.Text)
	}
	s.logger.Info("favorites scraped",
		zap.String("url", s.target.URL),
		zap.Int("count", len(items)),
	)
	return items, nil
}
