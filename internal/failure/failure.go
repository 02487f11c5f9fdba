// Package failure classifies run errors so callers can tell a failed step
// apart from an empty result.
package failure

import (
	"errors"
	"fmt"
)

// Kind names the step class an error originated from.
type Kind string

const (
	// KindUnknown is reported for errors that were never classified.
	KindUnknown Kind = "unknown"
	// KindConfig covers missing credentials and invalid configuration.
	KindConfig Kind = "config"
	// KindLaunch covers browser start-up failures.
	KindLaunch Kind = "launch"
	// KindAPI covers remote document API failures.
	KindAPI Kind = "api"
	// KindScrape covers navigation and element query failures.
	KindScrape Kind = "scrape"
)

// Error wraps an underlying error with its kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New wraps err with kind and op. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must stop the run.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindLaunch:
		return true
	default:
		return false
	}
}
