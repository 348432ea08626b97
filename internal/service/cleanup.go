package service

import (
	"bitwise74/career-api/internal/repository"
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ResendCleanup removes throttle rows whose counting window is over. It
// runs on schedule until the returned cron is stopped.
func ResendCleanup(schedule string, r *repository.ResendRepository) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := r.DeleteStale(ctx, time.Now())
		if err != nil {
			zap.L().Error("Failed to clean up resend throttles", zap.Error(err))
			return
		}

		if n > 0 {
			zap.L().Debug("Cleaned up resend throttles", zap.Int64("rows", n))
		}
	})
	if err != nil {
		return nil, err
	}

	zap.L().Debug("Resend cleanup attached", zap.String("schedule", schedule))

	c.Start()
	return c, nil
}
