package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/prabhatkmr/beema-sub003/pipeline"
)

// Logging returns middleware that logs run start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, run *pipeline.Run, next Handler) error {
		logger.Info("run started",
			slog.String("job_name", run.JobName),
			slog.String("run_id", run.ID.String()),
			slog.String("tenant_id", run.TenantID),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("run failed",
				slog.String("job_name", run.JobName),
				slog.String("run_id", run.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("run completed",
				slog.String("job_name", run.JobName),
				slog.String("run_id", run.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.Int("read", run.Summary.ReadCount),
				slog.Int("written", run.Summary.WriteCount),
			)
		}

		return err
	}
}
