// Package models defines the persisted entities and the static plan catalog.
package models

import "time"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// PlanInfo describes one tier of the catalog.
type PlanInfo struct {
	Name       string  `json:"name"`
	PagesLimit int     `json:"pages_limit"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
}

// Plans is the static catalog. Process-wide, immutable.
var Plans = map[Plan]PlanInfo{
	PlanFree:    {Name: "Gratuito", PagesLimit: 50, Price: 0, Currency: "eur"},
	PlanStarter: {Name: "Inicial", PagesLimit: 400, Price: 30, Currency: "eur"},
	PlanPro:     {Name: "Profissional", PagesLimit: 4000, Price: 99, Currency: "eur"},
}

// ValidPlan reports whether tier exists in the catalog.
func ValidPlan(tier Plan) bool {
	_, ok := Plans[tier]
	return ok
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

type Subscription struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	PlanType           Plan      `json:"plan_type"`
	Status             string    `json:"status"`
	PagesLimit         int       `json:"pages_limit"`
	PagesUsedThisMonth int       `json:"pages_used_this_month"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}

const (
	ConversionProcessing = "processing"
	ConversionCompleted  = "completed"
	ConversionFailed     = "failed"
)

type Conversion struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	OriginalFilename string         `json:"original_filename"`
	BankName         string         `json:"bank_name"`
	PagesCount       int            `json:"pages_count"`
	Status           string         `json:"status"`
	ExtractedData    *StatementData `json:"extracted_data,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"

	TransactionInitiated = "initiated"
	TransactionCompleted = "completed"
)

type PaymentTransaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	PlanType      Plan      `json:"plan_type"`
	CreatedAt     time.Time `json:"created_at"`
}
