package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/quintave/quintave/internal/model"
	"github.com/quintave/quintave/internal/service"
)

// CompleteOnboarding gives a user without buckets the five default ones and
// marks onboarding done. Running it again changes nothing.
func (e *Engine) CompleteOnboarding(ctx context.Context, userID int64) ([]model.Bucket, error) {
	var buckets []model.Bucket
	err := e.withTx(ctx, func(tx service.Transaction) error {
		if _, err := tx.GetUserByID(ctx, userID); err != nil {
			return err
		}

		n, err := tx.CountBuckets(ctx, userID)
		if err != nil {
			return err
		}
		if n == 0 {
			for _, name := range model.DefaultBucketNames {
				if err := tx.CreateBucket(ctx, &model.Bucket{UserID: userID, Name: name}); err != nil {
					return err
				}
			}
			e.logger.Info("created default buckets", zap.Int64("user_id", userID))
		}

		if err := tx.SetOnboardingComplete(ctx, userID, true); err != nil {
			return err
		}

		buckets, err = tx.GetBuckets(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buckets, nil
}
