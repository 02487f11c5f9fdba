package favorites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/favsync/internal/browser"
	"github.com/JakeFAU/favsync/internal/failure"
)

type fakePage struct {
	navErr   error
	findErr  error
	elements []browser.Element

	navigatedTo string
	queried     string
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.navigatedTo = url
	return f.navErr
}

func (f *fakePage) FindAll(_ context.Context, selector string) ([]browser.Element, error) {
	f.queried = selector
	return f.elements, f.findErr
}

var target = Target{URL: "https://example.com", Selector: "//li[contains(@class, 'favorite-item')]"}

func TestScrapePreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	page := &fakePage{elements: []browser.Element{
		{Text: "Site A"}, {Text: "Site B"}, {Text: "Site A"},
	}}
	items, err := NewScraper(page, target, nil).Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Site A", "Site B", "Site A"}, items)
	assert.Equal(t, target.URL, page.navigatedTo)
	assert.Equal(t, target.Selector, page.queried)
}

func TestScrapeNoMatchesIsEmptyNotError(t *testing.T) {
	t.Parallel()

	items, err := NewScraper(&fakePage{}, target, nil).Scrape(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestScrapeFailuresAreScrapeKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page *fakePage
		op   string
	}{
		{"navigation", &fakePage{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}, "navigate"},
		{"query", &fakePage{findErr: browser.ErrSessionClosed}, "find favorites"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			items, err := NewScraper(tt.page, target, nil).Scrape(context.Background())
			require.Error(t, err)
			assert.Nil(t, items)
			assert.Equal(t, failure.KindScrape, failure.KindOf(err))
			assert.Contains(t, err.Error(), tt.op)
		})
	}
}

func TestScrapeSkipsQueryWhenNavigationFails(t *testing.T) {
	t.Parallel()

	page := &fakePage{navErr: errors.New("timeout")}
	_, err := NewScraper(page, target, nil).Scrape(context.Background())
	require.Error(t, err)
	assert.Empty(t, page.queried)
}
