// Package notifier mails each subscriber the current prices of the helmets
// on their watchlist.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/observability"
	"github.com/IshaanNene/HelmetPulse/internal/pricing"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// PriceSource looks up the quote for one watch item.
type PriceSource interface {
	Lookup(ctx context.Context, w WatchItem) (*pricing.Quote, error)
}

// Summary counts one notifier run.
type Summary struct {
	Subscribers  int
	Sent         int
	Failed       int
	Lookups      int
	LookupErrors int
}

func (s Summary) String() string {
	return fmt.Sprintf("subscribers=%d sent=%d failed=%d lookups=%d lookup_errors=%d",
		s.Subscribers, s.Sent, s.Failed, s.Lookups, s.LookupErrors)
}

// Notifier runs the weekly price report.
type Notifier struct {
	subscribersFile string
	prices          PriceSource
	mailer          Mailer
	subject         string
	delay           time.Duration
	metrics         *observability.Metrics
	now             func() time.Time
	logger          *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithMetrics counts sent and failed emails.
func WithMetrics(m *observability.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// New creates a Notifier.
func New(cfg config.NotifierConfig, prices PriceSource, mailer Mailer, logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		subscribersFile: cfg.SubscribersFile,
		prices:          prices,
		mailer:          mailer,
		subject:         cfg.Subject,
		delay:           cfg.Delay,
		now:             time.Now,
		logger:          logger.With("component", "notifier"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run sends one report to every subscriber. A failed lookup becomes a
// "no recent price" row; a failed send is counted and the run moves on.
// Only an unreadable subscribers file or cancellation fails the run.
func (n *Notifier) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	subs, err := LoadSubscribers(n.subscribersFile, n.logger)
	if err != nil {
		return sum, err
	}
	sum.Subscribers = len(subs)
	n.logger.Info("sending price reports", "subscribers", len(subs))

	for _, sub := range subs {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		report := n.buildReport(ctx, sub, &sum)
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		body, err := Render(report)
		if err == nil {
			err = n.mailer.Send(ctx, sub.Email, n.subject, body)
		}
		if err != nil {
			sum.Failed++
			if n.metrics != nil {
				n.metrics.EmailsFailed.Add(1)
			}
			n.logger.Error("price report not sent", "email", sub.Email, "error", err)
			continue
		}
		sum.Sent++
		if n.metrics != nil {
			n.metrics.EmailsSent.Add(1)
		}
		n.logger.Info("price report sent", "email", sub.Email, "items", len(report.Rows))
	}

	n.logger.Info("notifier run complete", "summary", sum.String())
	return sum, nil
}

func (n *Notifier) buildReport(ctx context.Context, sub Subscriber, sum *Summary) Report {
	report := Report{Name: sub.Name, GeneratedAt: n.now()}

	for i, w := range sub.Watchlist {
		if i > 0 || sum.Lookups > 0 {
			if !sleep(ctx, n.delay) {
				return report
			}
		}
		sum.Lookups++

		row := Row{Label: w.Label()}
		q, err := n.prices.Lookup(ctx, w)
		switch {
		case errors.Is(err, types.ErrNotFound):
			n.logger.Debug("no price for watch item", "item", w.Label())
		case err != nil:
			sum.LookupErrors++
			n.logger.Warn("price lookup failed", "item", w.Label(), "error", err)
		default:
			row.Found = true
			row.Median = q.MedianPrice
			row.Min = q.MinPrice
			row.Max = q.MaxPrice
			row.TotalResults = q.TotalResults
			row.Source = q.Source
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

// Schedule runs job on a standard five-field cron spec until ctx is done.
// A run still in progress when the next one is due is skipped.
func Schedule(ctx context.Context, spec string, job func(context.Context), logger *slog.Logger) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	id, err := c.AddFunc(spec, func() { job(ctx) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Info("scheduler started", "schedule", spec, "next", c.Entry(id).Next)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	logger.Info("scheduler stopped")
	return nil
}

// sleep waits d or until ctx is done; it reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
