package reconciler

import (
	"context"
	"fmt"
	"time"

	"autosnap/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Consumer is the event stream the reconciler drives. *kafka.Consumer
// satisfies it.
type Consumer interface {
	Start(ctx context.Context) error
	Close() error
}

// Reconciler runs the event consumer and the periodic sweep until its
// context ends.
type Reconciler struct {
	consumer Consumer
	sweeper  *Sweeper
	schedule string
	timeout  time.Duration
	log      *logger.Logger
	cron     *cron.Cron
}

// New builds a reconciler. consumer may be nil when Kafka is not configured;
// only the sweep runs then.
func New(c Consumer, sweeper *Sweeper, schedule string, sweepTimeout time.Duration, log *logger.Logger) *Reconciler {
	return &Reconciler{
		consumer: c,
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  sweepTimeout,
		log:      log,
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := r.cron.AddFunc(r.schedule, func() { r.sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.log.Info("Reconcile sweep scheduled", "schedule", r.schedule)

	// catch up on anything left while the reconciler was down
	r.sweep(ctx)

	var err error
	if r.consumer != nil {
		err = r.consumer.Start(ctx)
	} else {
		<-ctx.Done()
	}

	stopped := r.cron.Stop()
	<-stopped.Done()

	if r.consumer != nil {
		if closeErr := r.consumer.Close(); closeErr != nil {
			r.log.Error("Failed to close consumer", "error", closeErr)
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Reconciler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sweepCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	removed, err := r.sweeper.Sweep(sweepCtx)
	if err != nil {
		r.log.Error("Reconcile sweep finished with errors", "removed", removed, "error", err)
		return
	}
	r.log.Info("Reconcile sweep finished", "removed", removed)
}
