package arctic

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Stats struct {
	Acknowledged int
	Rejected     int
	Errored      int
}

func (s Stats) Total() int {
	return s.Acknowledged + s.Rejected + s.Errored
}

// Runner sends generated documents one at a time until its duration elapses.
type Runner struct {
	sender    *Sender
	generator *Generator
	template  any
	now       func() time.Time
}

func NewRunner(sender *Sender, generator *Generator, template any) *Runner {
	return &Runner{
		sender:    sender,
		generator: generator,
		template:  template,
		now:       time.Now,
	}
}

// Run keeps sending until duration has elapsed or ctx is canceled. A request in
// flight when the duration elapses is allowed to finish.
func (r *Runner) Run(ctx context.Context, duration time.Duration) Stats {
	var stats Stats
	start := r.now()

	for r.now().Sub(start) < duration {
		if ctx.Err() != nil {
			zap.L().Info("Run canceled", zap.Int("sent", stats.Total()))
			break
		}

		document := r.generator.Generate(r.template)
		status, err := r.sender.Send(ctx, document)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			stats.Errored++
			zap.L().Error("error sending data", zap.String("endpoint", r.sender.Endpoint()), zap.Error(err))
		case status < 200 || status > 299:
			stats.Rejected++
			zap.L().Warn("server responded with non-success status", zap.Int("status", status))
		default:
			stats.Acknowledged++
		}
	}

	return stats
}
