package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gpalras/bank-converter-pt/app/models"
)

// userContextKey is where the auth middleware stashes the resolved user.
const userContextKey = "currentUser"

// maxUploadBytes caps statement uploads at 20MB.
const maxUploadBytes = 20 << 20

func currentUser(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(userContextKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

// GetPlans returns the public plan catalog.
func GetPlans(c *gin.Context) {
	c.JSON(http.StatusOK, models.Plans)
}

// GetCurrentSubscription returns the caller's active subscription, creating
// the free one on first access.
func GetCurrentSubscription(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	sub, err := GetOrCreateActiveSubscription(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("subscription load failed user=%s err=%v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// UploadStatement accepts a statement PDF, checks the quota and runs the
// conversion pipeline synchronously.
func UploadStatement(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	bankName := c.PostForm("bank_name")
	if bankName == "" {
		bankName = "Millennium"
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()
	pdf, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Minute)
	defer cancel()

	sub, err := GetOrCreateActiveSubscription(ctx, user.ID)
	if err != nil {
		log.Printf("subscription load failed user=%s err=%v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	estimatedPages := EstimatePages(int64(len(pdf)))
	if err := CheckAdmission(sub, estimatedPages); err != nil {
		var quotaErr QuotaError
		if errors.As(err, &quotaErr) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Limite de páginas atingido. Faça upgrade do seu plano.",
				"limit":   quotaErr.Limit,
				"used":    quotaErr.Used,
				"deficit": quotaErr.Deficit(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check quota"})
		return
	}

	conv := models.Conversion{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		OriginalFilename: filepath.Base(fileHeader.Filename),
		BankName:         bankName,
		PagesCount:       estimatedPages,
		CreatedAt:        time.Now().UTC(),
	}

	// Keep the original upload next to the artifacts for traceability.
	if dir, err := uploadDir(); err == nil {
		if err := os.WriteFile(artifactPath(dir, conv.ID, ".pdf"), pdf, 0o644); err != nil {
			log.Printf("failed to persist upload id=%s err=%v", conv.ID, err)
		}
	}

	if err := ProcessConversion(ctx, conv, pdf, sub.ID); err != nil {
		log.Printf("conversion failed id=%s user=%s err=%v", conv.ID, user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         "failed to process document",
			"conversion_id": conv.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversion_id": conv.ID,
		"status":        models.ConversionCompleted,
	})
}

// GetConversions lists the caller's conversions, newest first.
func GetConversions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	conversions, err := ListConversions(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("conversion list failed user=%s err=%v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversions"})
		return
	}
	c.JSON(http.StatusOK, conversions)
}

// GetConversionByID returns one of the caller's conversions.
func GetConversionByID(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	conv, err := GetConversion(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversion not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversion"})
		return
	}
	c.JSON(http.StatusOK, conv)
}

// DownloadCSV serves the delimited artifact for a conversion.
func DownloadCSV(c *gin.Context) {
	serveArtifact(c, ".csv", "text/csv")
}

// DownloadExcel serves the spreadsheet artifact for a conversion.
func DownloadExcel(c *gin.Context) {
	serveArtifact(c, ".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func serveArtifact(c *gin.Context, ext, contentType string) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	path, conv, err := conversionArtifact(c.Request.Context(), user.ID, c.Param("id"), ext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load file"})
		return
	}

	c.Header("Content-Type", contentType)
	c.FileAttachment(path, conv.OriginalFilename+ext)
}
