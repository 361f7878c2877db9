// Conversion record lifecycle: processing -> completed | failed. The row is
// persisted before extraction starts so status is observable mid-flight, and
// usage is committed only after a conversion completes.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gpalras/bank-converter-pt/app/config"
	"github.com/gpalras/bank-converter-pt/app/models"
)

func uploadDir() (string, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	return cfg.UploadDir, nil
}

func artifactPath(dir, conversionID, ext string) string {
	return filepath.Join(dir, conversionID+ext)
}

// ProcessConversion runs the upload-to-artifact pipeline for one conversion.
// Extraction or artifact failures mark the record failed and never commit
// usage; a completed conversion commits its estimated pages exactly once.
func ProcessConversion(ctx context.Context, conv models.Conversion, pdf []byte, subscriptionID string) error {
	if err := insertConversion(ctx, conv); err != nil {
		return err
	}

	data, err := extractor.ExtractStatement(ctx, pdf, conv.BankName)
	if err != nil {
		markConversionFailed(ctx, conv.ID)
		return err
	}

	dir, err := uploadDir()
	if err != nil {
		markConversionFailed(ctx, conv.ID)
		return err
	}
	if err := writeTransactionsCSV(artifactPath(dir, conv.ID, ".csv"), data.Transactions); err != nil {
		markConversionFailed(ctx, conv.ID)
		return fmt.Errorf("csv artifact: %w", err)
	}
	if err := writeTransactionsXLSX(artifactPath(dir, conv.ID, ".xlsx"), data.Transactions); err != nil {
		markConversionFailed(ctx, conv.ID)
		return fmt.Errorf("excel artifact: %w", err)
	}

	if err := completeConversion(ctx, conv.ID, data); err != nil {
		markConversionFailed(ctx, conv.ID)
		return err
	}

	return CommitUsage(ctx, subscriptionID, conv.PagesCount)
}

func insertConversion(ctx context.Context, conv models.Conversion) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO conversions
			(id, user_id, original_filename, bank_name, pages_count, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`,
		conv.ID,
		conv.UserID,
		conv.OriginalFilename,
		conv.BankName,
		conv.PagesCount,
		models.ConversionProcessing,
		conv.CreatedAt,
	)
	return err
}

func completeConversion(ctx context.Context, conversionID string, data models.StatementData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE conversions
		SET status = $1, extracted_data = $2
		WHERE id = $3;
	`, models.ConversionCompleted, payload, conversionID)
	return err
}

// markConversionFailed records the terminal failed state. A failed
// conversion stays visible to the user, it is never dropped.
func markConversionFailed(ctx context.Context, conversionID string) {
	_, err := db.ExecContext(ctx, `
		UPDATE conversions
		SET status = $1
		WHERE id = $2;
	`, models.ConversionFailed, conversionID)
	if err != nil {
		log.Printf("failed to mark conversion failed id=%s err=%v", conversionID, err)
	}
}

// ListConversions returns the user's conversions, newest first, capped at 100.
func ListConversions(ctx context.Context, userID string) ([]models.Conversion, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, original_filename, bank_name, pages_count, status, extracted_data, created_at
		FROM conversions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 100;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Conversion{}
	for rows.Next() {
		conv, err := scanConversion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversion loads one conversion, scoped to its owner. sql.ErrNoRows
// covers both a missing record and one owned by someone else.
func GetConversion(ctx context.Context, userID, conversionID string) (models.Conversion, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, original_filename, bank_name, pages_count, status, extracted_data, created_at
		FROM conversions
		WHERE id = $1 AND user_id = $2;
	`, conversionID, userID)
	return scanConversion(row.Scan)
}

func scanConversion(scan func(...any) error) (models.Conversion, error) {
	var (
		conv    models.Conversion
		payload []byte
	)
	err := scan(
		&conv.ID,
		&conv.UserID,
		&conv.OriginalFilename,
		&conv.BankName,
		&conv.PagesCount,
		&conv.Status,
		&payload,
		&conv.CreatedAt,
	)
	if err != nil {
		return models.Conversion{}, err
	}
	if len(payload) > 0 {
		var data models.StatementData
		if err := json.Unmarshal(payload, &data); err != nil {
			return models.Conversion{}, err
		}
		conv.ExtractedData = &data
	}
	return conv, nil
}

// conversionArtifact resolves the on-disk artifact for a download request.
// The conversion must exist and belong to the user; the file must exist.
func conversionArtifact(ctx context.Context, userID, conversionID, ext string) (string, models.Conversion, error) {
	conv, err := GetConversion(ctx, userID, conversionID)
	if err != nil {
		return "", models.Conversion{}, err
	}
	dir, err := uploadDir()
	if err != nil {
		return "", models.Conversion{}, err
	}
	path := artifactPath(dir, conversionID, ext)
	if _, err := os.Stat(path); err != nil {
		return "", models.Conversion{}, fmt.Errorf("artifact missing: %w", sql.ErrNoRows)
	}
	return path, conv, nil
}
