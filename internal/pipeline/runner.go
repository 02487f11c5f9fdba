// Package pipeline sequences one sync run: verify, launch, scrape, publish,
// close.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/favsync/internal/clock/system"
	"github.com/JakeFAU/favsync/internal/failure"
	"github.com/JakeFAU/favsync/internal/favorites"
	"github.com/JakeFAU/favsync/internal/metrics"
	"github.com/JakeFAU/favsync/internal/publisher"
)

// Run outcomes reported in logs and metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Session is a launched browser the runner scrapes with and then closes.
type Session interface {
	favorites.Page
	Close() error
}

// LaunchFunc starts a browser session.
type LaunchFunc func(ctx context.Context) (Session, error)

// Verifier checks access to the page.
type Verifier interface {
	Verify(ctx context.Context, pageID string) (string, error)
}

// Publisher writes scraped items to the page.
type Publisher interface {
	Publish(ctx context.Context, pageID string, items []string) (publisher.Result, error)
}

// IDGenerator yields run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Deps wires a Runner. Metrics, IDs, and Clock are optional.
type Deps struct {
	PageID    string
	Target    favorites.Target
	Verifier  Verifier
	Launch    LaunchFunc
	Publisher Publisher
	IDs       IDGenerator
	Clock     Clock
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
}

// Report summarizes a run. Step errors are recorded here rather than
// returned, except for launch failures.
type Report struct {
	RunID      string
	Title      string
	Items      []string
	Published  publisher.Result
	VerifyErr  error
	ScrapeErr  error
	PublishErr error
	CloseErr   error
	Outcome    string
	StartedAt  time.Time
	Duration   time.Duration
}

// Runner executes a single pass.
type Runner struct {
	deps Deps
}

// NewRunner creates a Runner.
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Verifier == nil || deps.Launch == nil || deps.Publisher == nil {
		return nil, errors.New("pipeline: verifier, launch and publisher are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	return &Runner{deps: deps}, nil
}

// Run executes verify, launch, scrape, publish, and close, in that order.
// Only a launch failure is returned; every other failure is logged, recorded
// in the Report, and the run continues to teardown. The session is closed
// exactly once whenever launch succeeded.
func (r *Runner) Run(ctx context.Context) (report Report, err error) {
	report.StartedAt = r.deps.Clock.Now()
	report.RunID = r.runID()
	logger := r.deps.Logger.With(zap.String("run_id", report.RunID))

	defer func() {
		report.Duration = r.deps.Clock.Now().Sub(report.StartedAt)
		report.Outcome = outcome(report, err)
		r.deps.Metrics.ObserveRun(report.Outcome, report.Duration)
		logger.Info("run finished",
			zap.String("outcome", report.Outcome),
			zap.Int("items", len(report.Items)),
			zap.Int("blocks_appended", report.Published.Appended),
			zap.Duration("duration", report.Duration),
		)
	}()

	// Verification is advisory. A page without a readable title is not a
	// failure, only an unreachable page is.
	report.Title, report.VerifyErr = r.deps.Verifier.Verify(ctx, r.deps.PageID)
	if accessFailed(report.VerifyErr) {
		r.stepFailed(logger, "verify", report.VerifyErr)
	}

	session, launchErr := r.deps.Launch(ctx)
	if launchErr != nil {
		if failure.KindOf(launchErr) == failure.KindUnknown {
			launchErr = failure.New(failure.KindLaunch, "launch browser", launchErr)
		}
		r.stepFailed(logger, "launch", launchErr)
		return report, launchErr
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			report.CloseErr = closeErr
			logger.Warn("failed to close browser", zap.Error(closeErr))
		}
	}()

	scraper := favorites.NewScraper(session, r.deps.Target, logger.Named("scraper"))
	items, scrapeErr := scraper.Scrape(ctx)
	if scrapeErr != nil {
		report.ScrapeErr = scrapeErr
		r.stepFailed(logger, "scrape", scrapeErr)
		return report, nil
	}
	report.Items = items
	r.deps.Metrics.AddScraped(len(items))

	report.Published, report.PublishErr = r.deps.Publisher.Publish(ctx, r.deps.PageID, items)
	if report.PublishErr != nil {
		r.stepFailed(logger, "publish", report.PublishErr)
	}
	return report, nil
}

func (r *Runner) runID() string {
	if r.deps.IDs == nil {
		return ""
	}
	id, err := r.deps.IDs.NewID()
	if err != nil {
		r.deps.Logger.Warn("failed to generate run id", zap.Error(err))
		return ""
	}
	return id
}

func (r *Runner) stepFailed(logger *zap.Logger, step string, err error) {
	kind := failure.KindOf(err)
	r.deps.Metrics.ObserveStepFailure(step, string(kind))
	logger.Error("step failed",
		zap.String("step", step),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
}

func outcome(report Report, runErr error) string {
	switch {
	case runErr != nil:
		return OutcomeFailed
	case accessFailed(report.VerifyErr), report.ScrapeErr != nil, report.PublishErr != nil, report.CloseErr != nil:
		return OutcomeDegraded
	default:
		return OutcomeSuccess
	}
}

func accessFailed(err error) bool {
	return failure.KindOf(err) == failure.KindAPI
}
