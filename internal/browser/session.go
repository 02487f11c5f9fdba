// Package browser owns the headless Chrome session used for scraping.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultNavTimeout = 60 * time.Second

// Session lifecycle errors.
var (
	ErrNotStarted    = errors.New("browser session not started")
	ErrNotNavigated  = errors.New("browser session has not navigated")
	ErrSessionClosed = errors.New("browser session closed")
)

// State tracks the session lifecycle.
type State int

// Session states. There is no way back from StateClosed.
const (
	StateUnstarted State = iota
	StateLaunched
	StateNavigated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateLaunched:
		return "launched"
	case StateNavigated:
		return "navigated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options controls how Chrome is launched.
type Options struct {
	// ExecPath overrides chromedp's lookup of the installed Chrome binary.
	ExecPath      string
	Headless      bool
	NoSandbox     bool
	DisableDevShm bool
	UserAgent     string
	// NavigationTimeout bounds each Navigate and FindAll call.
	NavigationTimeout time.Duration
}

// Element is a matched DOM node and its rendered text.
type Element struct {
	NodeID cdp.NodeID
	Text   string
}

// Session is a single launched browser tab. It is not safe for concurrent use.
type Session struct {
	opts       Options
	logger     *zap.Logger
	browserCtx context.Context
	closeFn    func() error
	state      State
	url        string
}

// Launch starts Chrome and waits until the first tab is ready.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logger.Sugar().Errorf),
	)
	// The first Run allocates the browser and ties its lifetime to browserCtx.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	s := &Session{
		opts:       opts,
		logger:     logger,
		browserCtx: browserCtx,
		state:      StateLaunched,
	}
	s.closeFn = func() error {
		err := chromedp.Cancel(browserCtx)
		browserCancel()
		allocCancel()
		return err
	}
	logger.Info("browser launched",
		zap.Bool("headless", opts.Headless),
		zap.String("exec_path", opts.ExecPath),
	)
	return s, nil
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Navigate loads url in the session tab and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.usable(); err != nil {
		return err
	}
	taskCtx, stop := s.taskContext(ctx)
	defer stop()

	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	s.state = StateNavigated
	s.url = url
	s.logger.Debug("navigated", zap.String("url", url))
	return nil
}

// FindAll returns every element matching selector, in document order, with
// its rendered text. Zero matches is not an error.
func (s *Session) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if s.state != StateNavigated {
		return nil, ErrNotNavigated
	}
	taskCtx, stop := s.taskContext(ctx)
	defer stop()

	var nodes []*cdp.Node
	if err := chromedp.Run(taskCtx,
		chromedp.Nodes(selector, &nodes, queryOption(selector), chromedp.AtLeast(0)),
	); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		var text string
		if err := chromedp.Run(taskCtx,
			chromedp.Text([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID),
		); err != nil {
			return nil, fmt.Errorf("read text of node %d: %w", node.NodeID, err)
		}
		elements = append(elements, Element{NodeID: node.NodeID, Text: text})
	}
	s.logger.Debug("elements found",
		zap.String("url", s.url),
		zap.String("selector", selector),
		zap.Int("count", len(elements)),
	)
	return elements, nil
}

// Close terminates the browser. Calling it again is a no-op.
func (s *Session) Close() error {
	switch s.state {
	case StateClosed:
		return nil
	case StateUnstarted:
		s.state = StateClosed
		return nil
	}
	s.state = StateClosed
	if s.closeFn == nil {
		return nil
	}
	if err := s.closeFn(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	s.logger.Info("browser closed")
	return nil
}

func (s *Session) usable() error {
	switch s.state {
	case StateUnstarted:
		return ErrNotStarted
	case StateClosed:
		return ErrSessionClosed
	default:
		return nil
	}
}

func (s *Session) navTimeout() time.Duration {
	if s.opts.NavigationTimeout > 0 {
		return s.opts.NavigationTimeout
	}
	return defaultNavTimeout
}

// taskContext derives a bounded context from the browser context and cancels
// it when the caller's ctx is done.
func (s *Session) taskContext(ctx context.Context) (context.Context, context.CancelFunc) {
	taskCtx, cancel := context.WithTimeout(s.browserCtx, s.navTimeout())
	stopForward := forwardCancel(ctx, cancel)
	return taskCtx, func() {
		stopForward()
		cancel()
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// IsXPath reports whether selector is treated as an XPath expression.
func IsXPath(selector string) bool {
	trimmed := strings.TrimSpace(selector)
	return strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "(")
}

func queryOption(selector string) chromedp.QueryOption {
	if IsXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}

// launchFlags lists the Chrome switches applied on top of chromedp's defaults.
func launchFlags(opts Options) map[string]any {
	flags := map[string]any{
		"headless": opts.Headless,
	}
	if opts.NoSandbox {
		flags["no-sandbox"] = true
	}
	if opts.DisableDevShm {
		flags["disable-dev-shm-usage"] = true
	}
	return flags
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range launchFlags(opts) {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	return allocOpts
}
