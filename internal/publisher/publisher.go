// Package publisher writes scraped favorites to the Notion page.
package publisher

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/failure"
	"github.com/JakeFAU/favsync/internal/metrics"
	"github.com/JakeFAU/favsync/internal/notion"
)

// Document is the remote page API the publisher needs.
type Document interface {
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	AppendBlocks(ctx context.Context, blockID string, blocks []notion.Block) (*notion.AppendResult, error)
}

// Options tunes publishing.
type Options struct {
	// SkipEmpty suppresses both remote calls when there is nothing to write.
	SkipEmpty bool
}

// Result describes what a Publish call did.
type Result struct {
	BlocksSent int
	Appended   int
	Skipped    bool
}

// Publisher appends favorites as paragraph blocks.
type Publisher struct {
	doc     Document
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// New creates a Publisher. rec may be nil.
func New(doc Document, opts Options, logger *zap.Logger, rec *metrics.Recorder) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{doc: doc, opts: opts, logger: logger, metrics: rec}
}

// BuildBlocks returns one paragraph block per item, in order.
func BuildBlocks(items []string) []notion.Block {
	blocks := make([]notion.Block, 0, len(items))
	for _, item := range items {
		blocks = append(blocks, notion.NewParagraph(item))
	}
	return blocks
}

// Publish re-reads the page and appends one block per item. The page read
// only confirms reachability; its content is not compared with items.
func (p *Publisher) Publish(ctx context.Context, pageID string, items []string) (Result, error) {
	if len(items) == 0 && p.opts.SkipEmpty {
		p.logger.Info("nothing to publish, skipping")
		return Result{Skipped: true}, nil
	}

	if _, err := p.doc.RetrievePage(ctx, pageID); err != nil {
		return Result{}, failure.New(failure.KindAPI, "retrieve page", err)
	}

	blocks := BuildBlocks(items)
	res := Result{BlocksSent: len(blocks)}
	appended, err := p.doc.AppendBlocks(ctx, pageID, blocks)
	if err != nil {
		return res, failure.New(failure.KindAPI, "append blocks", err)
	}

	res.Appended = len(blocks)
	if appended != nil && len(appended.Results) > 0 {
		res.Appended = len(appended.Results)
	}
	p.metrics.AddAppended(res.Appended)
	p.logger.Info("notion page updated",
		zap.Int("blocks_sent", res.BlocksSent),
		zap.Int("blocks_appended", res.Appended),
	)
	return res, nil
}
