// Package app enforces monthly page quotas for authenticated users.
package app

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/gpalras/bank-converter-pt/app/models"

	"github.com/google/uuid"
)

// periodDays is the length of a subscription usage window.
const periodDays = 30

// bytesPerPage is the coarse heuristic for estimating pages from upload
// size. It is an approximation, not a real page count.
const bytesPerPage = 50 * 1024

// EstimatePages estimates a page count from an upload's byte size.
func EstimatePages(size int64) int {
	pages := int(size / bytesPerPage)
	if pages < 1 {
		return 1
	}
	return pages
}

// GetOrCreateActiveSubscription returns the user's active subscription,
// lazily creating a free-tier one on first access. The insert races safely
// against concurrent first access: the partial unique index on
// (user_id) WHERE status = 'active' makes it a no-op for the loser.
func GetOrCreateActiveSubscription(ctx context.Context, userID string) (models.Subscription, error) {
	free := models.Plans[models.PlanFree]
	now := time.Now().UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions
			(id, user_id, plan_type, status, pages_limit, pages_used_this_month, current_period_start, current_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING;
	`,
		uuid.NewString(),
		userID,
		models.PlanFree,
		models.SubscriptionActive,
		free.PagesLimit,
		0,
		now,
		now.AddDate(0, 0, periodDays),
	)
	if err != nil {
		return models.Subscription{}, err
	}

	return getActiveSubscription(ctx, userID)
}

func getActiveSubscription(ctx context.Context, userID string) (models.Subscription, error) {
	var sub models.Subscription
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, plan_type, status, pages_limit, pages_used_this_month, current_period_start, current_period_end
		FROM subscriptions
		WHERE user_id = $1 AND status = $2;
	`, userID, models.SubscriptionActive).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanType,
		&sub.Status,
		&sub.PagesLimit,
		&sub.PagesUsedThisMonth,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
	)
	if err != nil {
		return models.Subscription{}, err
	}
	return sub, nil
}

// CheckAdmission decides whether an upload of estimatedPages may proceed.
// Equality with the limit admits.
func CheckAdmission(sub models.Subscription, estimatedPages int) error {
	if estimatedPages < 0 {
		estimatedPages = 0
	}
	if sub.PagesUsedThisMonth+estimatedPages > sub.PagesLimit {
		return QuotaError{
			Limit:     sub.PagesLimit,
			Used:      sub.PagesUsedThisMonth,
			Requested: estimatedPages,
		}
	}
	return nil
}

// CommitUsage durably increments consumption after a successful conversion.
// The limit is deliberately not re-checked here: the caller was admitted
// under CheckAdmission and already did the work.
func CommitUsage(ctx context.Context, subscriptionID string, pages int) error {
	res, err := db.ExecContext(ctx, `
		UPDATE subscriptions
		SET pages_used_this_month = pages_used_this_month + $1
		WHERE id = $2;
	`, pages, subscriptionID)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		log.Printf("CommitUsage: no subscription row found for id=%s", subscriptionID)
	}
	return nil
}

// upgradeSubscription cancels the user's active subscriptions and inserts a
// fresh one at the new tier, inside the caller's transaction. Idempotency is
// the caller's responsibility (the payment compare-and-set in settlePayment).
func upgradeSubscription(ctx context.Context, tx *sql.Tx, userID string, tier models.Plan) error {
	plan, ok := models.Plans[tier]
	if !ok {
		return errInvalidPlan(tier)
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1
		WHERE user_id = $2 AND status = $3;
	`, models.SubscriptionCancelled, userID, models.SubscriptionActive)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions
			(id, user_id, plan_type, status, pages_limit, pages_used_this_month, current_period_start, current_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`,
		uuid.NewString(),
		userID,
		tier,
		models.SubscriptionActive,
		plan.PagesLimit,
		0,
		now,
		now.AddDate(0, 0, periodDays),
	)
	return err
}

type errInvalidPlan models.Plan

func (e errInvalidPlan) Error() string {
	return "unknown plan type: " + string(e)
}
