package repository

import (
	"fmt"

	"netbox/database"
)

// WatchlistRepository handles watchlist data operations.
type WatchlistRepository struct {
	db *database.DB
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(db *database.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Add puts a movie on a user's watchlist. The operation is idempotent:
// adding an already-watchlisted movie returns false without error.
func (r *WatchlistRepository) Add(userID, movieID int) (bool, error) {
	result, err := r.db.Exec(`
		INSERT INTO watchlist (user_id, movie_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, movie_id) DO NOTHING`,
		userID, movieID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add to watchlist: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}
