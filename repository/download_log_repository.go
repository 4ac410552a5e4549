package repository

import (
	"fmt"

	"netbox/database"
)

// DownloadLogRepository appends download audit records. Rows are never
// updated or deleted by application logic.
type DownloadLogRepository struct {
	db *database.DB
}

// NewDownloadLogRepository creates a new download log repository
func NewDownloadLogRepository(db *database.DB) *DownloadLogRepository {
	return &DownloadLogRepository{db: db}
}

// Log records one download request. Callers treat failure as non-fatal; a
// download response must never be blocked on the audit write.
func (r *DownloadLogRepository) Log(movieID, qualityID int, userIP, userAgent string) error {
	_, err := r.db.Exec(`
		INSERT INTO download_log (movie_id, quality_id, user_ip, user_agent)
		VALUES ($1, $2, $3, $4)`,
		movieID, qualityID, nullString(userIP), nullString(userAgent),
	)
	if err != nil {
		return fmt.Errorf("failed to log download: %w", err)
	}
	return nil
}
