// Package app wires the shared HTTP routes.
package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gpalras/bank-converter-pt/app/config"
	"github.com/gpalras/bank-converter-pt/auth"
)

// NewRouter builds the HTTP router with public and token-protected routes.
func NewRouter() (*gin.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	tokenVerifier = verifier

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: strings.Split(cfg.CORSOrigins, ","),
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", Health)

	api := router.Group("/api")
	api.POST("/auth/register", Register)
	api.POST("/auth/login", Login)
	api.GET("/subscriptions/plans", GetPlans)
	api.POST("/webhook/stripe", StripeWebhook)

	protected := api.Group("/")
	protected.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		OnAuthenticated: func(c *gin.Context, claims *auth.Claims) error {
			user, err := GetUserByID(c.Request.Context(), claims.Subject)
			if err != nil {
				return err
			}
			c.Set(userContextKey, user)
			return nil
		},
	}))
	protected.GET("/auth/me", Me)
	protected.GET("/subscriptions/current", GetCurrentSubscription)
	protected.POST("/conversions/upload", UploadStatement)
	protected.GET("/conversions", GetConversions)
	protected.GET("/conversions/:id", GetConversionByID)
	protected.GET("/conversions/:id/download/csv", DownloadCSV)
	protected.GET("/conversions/:id/download/excel", DownloadExcel)
	protected.POST("/payments/checkout/session", CreateCheckoutSession)
	protected.GET("/payments/checkout/status/:session_id", GetCheckoutStatus)

	return router, nil
}
