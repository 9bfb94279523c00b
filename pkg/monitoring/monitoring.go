// Package monitoring reports operational failures that need a human, such
// as an accept that copied an appointment but could not remove its source.
package monitoring

import (
	"context"
	"time"

	"autosnap/pkg/logger"

	"github.com/getsentry/sentry-go"
)

type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration)
}

type noopReporter struct{}

func NewNoopReporter() Reporter {
	return noopReporter{}
}

func (noopReporter) Report(context.Context, error, map[string]string) {}
func (noopReporter) Flush(time.Duration)                              {}

type sentryReporter struct {
	hub *sentry.Hub
	log *logger.Logger
}

// NewReporter returns a Sentry-backed reporter, or a no-op one when dsn is
// empty.
func NewReporter(dsn, environment string, log *logger.Logger) (Reporter, error) {
	if dsn == "" {
		return NewNoopReporter(), nil
	}

	return newSentryReporter(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}, log)
}

func newSentryReporter(opts sentry.ClientOptions, log *logger.Logger) (*sentryReporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}

	return &sentryReporter{
		hub: sentry.NewHub(client, sentry.NewScope()),
		log: log,
	}, nil
}

func (r *sentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	hub := r.hub
	if ctxHub := sentry.GetHubFromContext(ctx); ctxHub != nil {
		hub = ctxHub
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTags(tags)
		if id := hub.CaptureException(err); id != nil {
			r.log.Debug("reported error", "event_id", string(*id))
		}
	})
}

func (r *sentryReporter) Flush(timeout time.Duration) {
	if !r.hub.Flush(timeout) {
		r.log.Warn("sentry flush timed out", "timeout", timeout)
	}
}
