package repository

import (
	"log"

	"netbox/database"
	"netbox/models"

	"golang.org/x/sync/errgroup"
)

// StatsRepository computes read-only dashboard rollups.
type StatsRepository struct {
	db *database.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Dashboard returns the admin dashboard counts, the backing store's reported
// size, and the top five languages by active movie count, descending.
// Stats are best-effort: a failing sub-query
// is logged and leaves its field zeroed rather than failing the rollup.
// The sub-queries run concurrently, each on its own pooled connection.
func (r *StatsRepository) Dashboard() *models.DashboardStats {
	stats := &models.DashboardStats{
		TopLanguages: []models.LanguageCount{},
	}

	var g errgroup.Group

	g.Go(func() error {
		err := r.db.QueryRow(`SELECT COUNT(*) FROM movies WHERE is_active = TRUE`).Scan(&stats.TotalMovies)
		if err != nil {
			log.Printf("Failed to count movies: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.QueryRow(`SELECT COUNT(*) FROM download_log`).Scan(&stats.TotalDownloads)
		if err != nil {
			log.Printf("Failed to count downloads: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers)
		if err != nil {
			log.Printf("Failed to count users: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		err := r.db.QueryRow(`SELECT pg_size_pretty(pg_database_size(current_database()))`).Scan(&stats.DatabaseSize)
		if err != nil {
			log.Printf("Failed to measure database size: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.db.Query(`
			SELECT language, COUNT(*) AS count
			FROM movies
			WHERE is_active = TRUE
			GROUP BY language
			ORDER BY count DESC, language ASC
			LIMIT 5`)
		if err != nil {
			log.Printf("Failed to query top languages: %v", err)
			return nil
		}
		defer func() {
			if err := rows.Close(); err != nil {
				log.Printf("Failed to close rows: %v", err)
			}
		}()

		for rows.Next() {
			var lc models.LanguageCount
			if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
				log.Printf("Failed to scan language count: %v", err)
				return nil
			}
			stats.TopLanguages = append(stats.TopLanguages, lc)
		}
		if err := rows.Err(); err != nil {
			log.Printf("Error iterating top languages: %v", err)
		}
		return nil
	})

	// Workers never return errors; Wait only synchronizes them.
	_ = g.Wait()

	return stats
}
