package intake

import (
	"context"
	"time"

	"pantry-intake/internal/shared/telemetry"
)

// Poller periodically generates forms for pending rows. It replaces the spreadsheet
// submit trigger when no queue is configured.
type Poller struct {
	Service  *Service
	Interval time.Duration
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	telemetry.Info("intake.poller.start", map[string]any{"interval": interval.String()})
	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			telemetry.Error("intake.poller.scan_failed", map[string]any{"error": err})
		}
		select {
		case <-ctx.Done():
			telemetry.Info("intake.poller.stop", nil)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce processes every pending row once and returns how many were generated.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	rows, err := p.Service.Pending(ctx)
	if err != nil {
		return 0, err
	}
	generated := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			return generated, ctx.Err()
		}
		res, err := p.Service.Generate(ctx, row, false)
		if err != nil {
			telemetry.Error("intake.poller.generate_failed", map[string]any{"row": row, "error": err})
			continue
		}
		if !res.Skipped {
			generated++
		}
	}
	return generated, nil
}
