// Package verify performs the start-up access check against the target page.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/failure"
	"github.com/JakeFAU/favsync/internal/notion"
)

// Title shape failures. They are diagnostics, not access failures.
var (
	ErrNoTitleProperty      = errors.New("page properties do not include a title")
	ErrUnexpectedTitleShape = errors.New("title property has an unexpected shape")
	ErrEmptyTitle           = errors.New("page title is empty")
)

// PageReader retrieves a page by ID.
type PageReader interface {
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
}

// Verifier confirms the integration can read the page.
type Verifier struct {
	reader PageReader
	logger *zap.Logger
}

// New creates a Verifier.
func New(reader PageReader, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{reader: reader, logger: logger}
}

// Verify retrieves the page once and returns its title. A retrieval failure
// is an API-kind error; a readable page without a usable title returns one of
// the title sentinel errors.
func (v *Verifier) Verify(ctx context.Context, pageID string) (string, error) {
	page, err := v.reader.RetrievePage(ctx, pageID)
	if err != nil {
		v.logger.Warn("failed to access page", zap.Error(err))
		return "", failure.New(failure.KindAPI, "verify access", err)
	}
	v.logger.Info("integration access confirmed",
		zap.String("page_id", page.ID),
		zap.String("object", page.Object),
	)

	title, err := Title(page)
	if err != nil {
		v.logger.Info("page title unavailable", zap.String("reason", err.Error()))
		return "", err
	}
	v.logger.Info("page title", zap.String("title", title))
	return title, nil
}

type titleProperty struct {
	Type  string            `json:"type"`
	Title []notion.RichText `json:"title"`
}

// Title extracts the text of the first entry of the page's title property.
func Title(page *notion.Page) (string, error) {
	if page == nil {
		return "", ErrNoTitleProperty
	}
	raw, ok := page.Properties["title"]
	if !ok {
		return "", ErrNoTitleProperty
	}

	var prop titleProperty
	if err := json.Unmarshal(raw, &prop); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedTitleShape, err)
	}
	if prop.Type != "title" {
		return "", fmt.Errorf("%w: type %q", ErrUnexpectedTitleShape, prop.Type)
	}
	if len(prop.Title) == 0 {
		return "", ErrEmptyTitle
	}

	first := prop.Title[0]
	if first.Text != nil {
		return first.Text.Content, nil
	}
	if first.PlainText != "" {
		return first.PlainText, nil
	}
	return "", fmt.Errorf("%w: first title entry has no text", ErrUnexpectedTitleShape)
}
