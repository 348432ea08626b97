package repository

import (
	"bitwise74/career-api/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ResendPolicy limits how often a code can be mailed to one address
type ResendPolicy struct {
	Cooldown time.Duration
	Window   time.Duration
	Max      int
}

var DefaultResendPolicy = ResendPolicy{
	Cooldown: time.Minute,
	Window:   24 * time.Hour,
	Max:      5,
}

type ResendRepository struct {
	DB     *gorm.DB
	Policy ResendPolicy
}

// Record books a send to email at now. ErrResendCooldown and
// ErrResendBlocked are returned when the policy refuses it, together with
// how long the caller has to wait.
func (r *ResendRepository) Record(ctx context.Context, email string, now time.Time) (time.Duration, error) {
	p := r.Policy
	if p.Max == 0 {
		p = DefaultResendPolicy
	}

	var wait time.Duration

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.ResendRequest

		err := tx.Where("email = ?", email).First(&req).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			return tx.Create(&model.ResendRequest{
				Email:      email,
				LastResend: now,
				Cooldown:   now.Add(p.Window),
				Count:      1,
			}).Error
		}

		// Cooldown holds the end of the current counting window
		if !now.Before(req.Cooldown) {
			req.Count = 0
			req.Blocked = false
			req.Cooldown = now.Add(p.Window)
		}

		if req.Blocked {
			wait = req.Cooldown.Sub(now)
			return ErrResendBlocked
		}

		if next := req.LastResend.Add(p.Cooldown); now.Before(next) {
			wait = next.Sub(now)
			return ErrResendCooldown
		}

		req.Count++
		req.LastResend = now
		if req.Count >= p.Max {
			req.Blocked = true
		}

		return tx.Save(&req).Error
	})

	return wait, err
}

// DeleteStale removes throttle rows whose window ended before t
func (r *ResendRepository) DeleteStale(ctx context.Context, t time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("cooldown < ?", t).
		Delete(&model.ResendRequest{})

	return res.RowsAffected, res.Error
}
