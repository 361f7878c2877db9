// Stripe checkout and payment reconciliation. Webhook and polled status
// both converge on settlePayment, whose conditional update makes the plan
// upgrade idempotent per checkout session.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/gpalras/bank-converter-pt/app/config"
	"github.com/gpalras/bank-converter-pt/app/models"
)

// InitStripe wires the Stripe API key from the environment.
func InitStripe() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for stripe: %v", err)
	}
	stripe.Key = cfg.Stripe.SecretKey
}

type checkoutRequest struct {
	PlanType  models.Plan `json:"plan_type"`
	OriginURL string      `json:"origin_url"`
}

// CreateCheckoutSession starts a Stripe Checkout Session for a paid plan.
func CreateCheckoutSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	plan, ok := models.Plans[req.PlanType]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	}
	if plan.Price == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "free plan does not require payment"})
		return
	}
	origin := strings.TrimRight(req.OriginURL, "/")
	if origin == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing origin url"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(plan.Currency),
					UnitAmount: stripe.Int64(int64(plan.Price * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(plan.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(origin + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(origin + "/pricing"),
		Metadata: map[string]string{
			"user_id":   user.ID,
			"plan_type": string(req.PlanType),
		},
	}

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed user=%s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	if err := insertTransaction(c.Request.Context(), models.PaymentTransaction{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		SessionID:     sess.ID,
		Amount:        plan.Price,
		Currency:      plan.Currency,
		PaymentStatus: models.PaymentPending,
		Status:        models.TransactionInitiated,
		PlanType:      req.PlanType,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("failed to record payment transaction session=%s: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL, "session_id": sess.ID})
}

// GetCheckoutStatus returns the transaction for a session, refreshing from
// Stripe if it is not yet paid. An already-paid transaction short-circuits;
// the provider is never re-queried for a settled session.
func GetCheckoutStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	txn, err := getTransaction(ctx, user.ID, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transaction"})
		return
	}

	if txn.PaymentStatus == models.PaymentPaid {
		c.JSON(http.StatusOK, txn)
		return
	}

	sess, err := session.Get(sessionID, nil)
	if err != nil {
		log.Printf("stripe status check failed session=%s: %v", sessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to check payment status"})
		return
	}

	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		if err := settlePayment(ctx, sessionID); err != nil {
			log.Printf("payment settlement failed session=%s: %v", sessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply payment"})
			return
		}
		txn, err = getTransaction(ctx, user.ID, sessionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transaction"})
			return
		}
	}

	c.JSON(http.StatusOK, txn)
}

// StripeWebhook verifies the provider signature and applies paid checkout
// sessions. It acknowledges success whether or not an upgrade happened.
func StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil || cfg.Stripe.WebhookSecret == "" {
		log.Printf("stripe webhook not configured: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		cfg.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	if event.Type == "checkout.session.completed" {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("stripe session unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			if err := settlePayment(c.Request.Context(), sess.ID); err != nil {
				log.Printf("webhook settlement failed session=%s: %v", sess.ID, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// settlePayment marks a session paid and upgrades the owner's plan, exactly
// once. The conditional update is the sole synchronization point: a second
// caller (webhook vs. poll, or concurrent) matches zero rows and skips the
// upgrade.
func settlePayment(ctx context.Context, sessionID string) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		userID   string
		planType models.Plan
	)
	err = tx.QueryRowContext(ctx, `
		UPDATE payment_transactions
		SET payment_status = $1, status = $2
		WHERE session_id = $3 AND payment_status <> $1
		RETURNING user_id, plan_type;
	`, models.PaymentPaid, models.TransactionCompleted, sessionID).Scan(&userID, &planType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already settled (or unknown session): nothing to apply.
			return nil
		}
		return err
	}

	if err := upgradeSubscription(ctx, tx, userID, planType); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTransaction(ctx context.Context, txn models.PaymentTransaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO payment_transactions
			(id, user_id, session_id, amount, currency, payment_status, status, plan_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`,
		txn.ID,
		txn.UserID,
		txn.SessionID,
		txn.Amount,
		txn.Currency,
		txn.PaymentStatus,
		txn.Status,
		txn.PlanType,
		txn.CreatedAt,
	)
	return err
}

func getTransaction(ctx context.Context, userID, sessionID string) (models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, amount, currency, payment_status, status, plan_type, created_at
		FROM payment_transactions
		WHERE session_id = $1 AND user_id = $2;
	`, sessionID, userID).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.SessionID,
		&txn.Amount,
		&txn.Currency,
		&txn.PaymentStatus,
		&txn.Status,
		&txn.PlanType,
		&txn.CreatedAt,
	)
	if err != nil {
		return models.PaymentTransaction{}, err
	}
	return txn, nil
}
