// Package repository provides the data access layer for the catalog.
package repository

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"netbox/database"
	"netbox/models"

	"github.com/lib/pq"
)

// Default result caps for catalog reads.
const (
	DefaultSearchLimit = 20
	DefaultListLimit   = 100
)

// updatableMovieColumns is the allow-list for sparse updates. Caller-supplied
// field names never reach SQL text unless they appear here.
var updatableMovieColumns = map[string]bool{
	"title":       true,
	"year":        true,
	"description": true,
	"poster_url":  true,
	"language":    true,
	"genre":       true,
	"duration":    true,
	"rating":      true,
	"imdb_id":     true,
	"is_active":   true,
}

// MovieRepository owns all SQL over movies, qualities, and subtitles.
type MovieRepository struct {
	db *database.DB
}

// NewMovieRepository creates a new movie repository
func NewMovieRepository(db *database.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `id, title, year, description, poster_url, language, genre,
	duration, rating, imdb_id, is_active, created_at, updated_at`

// scanMovie reads one row of movieColumns into a Movie.
func scanMovie(row interface{ Scan(...interface{}) error }, movie *models.Movie) error {
	var year, duration sql.NullInt64
	var description, posterURL, genre, imdbID sql.NullString
	var rating sql.NullFloat64

	err := row.Scan(
		&movie.ID, &movie.Title, &year, &description, &posterURL,
		&movie.Language, &genre, &duration, &rating, &imdbID,
		&movie.IsActive, &movie.CreatedAt, &movie.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if year.Valid {
		movie.Year = int(year.Int64)
	}
	if description.Valid {
		movie.Description = description.String
	}
	if posterURL.Valid {
		movie.PosterURL = posterURL.String
	}
	if genre.Valid {
		movie.Genre = genre.String
	}
	if duration.Valid {
		movie.Duration = int(duration.Int64)
	}
	if rating.Valid {
		movie.Rating = rating.Float64
	}
	if imdbID.Valid {
		movie.IMDBID = imdbID.String
	}

	return nil
}

// Search returns active movies matching the filters, ordered by title.
// Title matching is case-insensitive substring containment; language matching
// is exact. Each result carries its quality variants, empty when none exist.
func (r *MovieRepository) Search(title, language string, limit int) ([]models.MovieWithQualities, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	query := `SELECT ` + movieColumns + ` FROM movies WHERE is_active = TRUE`
	var args []interface{}

	if title != "" {
		args = append(args, "%"+title+"%")
		query += fmt.Sprintf(" AND LOWER(title) LIKE LOWER($%d)", len(args))
	}
	if language != "" {
		args = append(args, language)
		query += fmt.Sprintf(" AND language = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY title ASC LIMIT $%d", len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var results []models.MovieWithQualities
	var ids []int64
	for rows.Next() {
		var m models.MovieWithQualities
		if err := scanMovie(rows, &m.Movie); err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		m.Qualities = []models.QualityVariant{}
		results = append(results, m)
		ids = append(ids, int64(m.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	if len(results) == 0 {
		return results, nil
	}

	variants, err := r.qualityVariantsFor(ids)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if v, ok := variants[results[i].ID]; ok {
			results[i].Qualities = v
		}
	}

	return results, nil
}

// qualityVariantsFor loads the quality variants for a set of movie ids in one
// query, keyed by movie id.
func (r *MovieRepository) qualityVariantsFor(movieIDs []int64) (map[int][]models.QualityVariant, error) {
	rows, err := r.db.Query(`
		SELECT movie_id, quality_code, quality_name, file_size, download_url
		FROM qualities
		WHERE movie_id = ANY($1)
		ORDER BY movie_id, quality_code`,
		pq.Array(movieIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query qualities: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	variants := make(map[int][]models.QualityVariant)
	for rows.Next() {
		var movieID int
		var v models.QualityVariant
		var size sql.NullString
		if err := rows.Scan(&movieID, &v.Code, &v.Name, &size, &v.URL); err != nil {
			return nil, fmt.Errorf("failed to scan quality: %w", err)
		}
		if size.Valid {
			v.Size = size.String
		}
		variants[movieID] = append(variants[movieID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return variants, nil
}

// GetByID returns one active movie with its qualities and subtitles.
// Soft-deleted movies yield models.ErrNotFound.
func (r *MovieRepository) GetByID(id int) (*models.MovieDetails, error) {
	details := &models.MovieDetails{
		Qualities: []models.Quality{},
		Subtitles: []models.Subtitle{},
	}

	row := r.db.QueryRow(`SELECT `+movieColumns+` FROM movies WHERE id = $1 AND is_active = TRUE`, id)
	if err := scanMovie(row, &details.Movie); err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT id, movie_id, quality_code, quality_name, file_size, file_path,
		       download_url, duration_seconds, bitrate, resolution
		FROM qualities WHERE movie_id = $1 ORDER BY quality_code`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query qualities: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	for rows.Next() {
		var q models.Quality
		var size, bitrate, resolution sql.NullString
		var durationSeconds sql.NullInt64
		if err := rows.Scan(&q.ID, &q.MovieID, &q.Code, &q.Name, &size, &q.FilePath,
			&q.DownloadURL, &durationSeconds, &bitrate, &resolution); err != nil {
			return nil, fmt.Errorf("failed to scan quality: %w", err)
		}
		if size.Valid {
			q.Size = size.String
		}
		if durationSeconds.Valid {
			q.DurationSeconds = int(durationSeconds.Int64)
		}
		if bitrate.Valid {
			q.Bitrate = bitrate.String
		}
		if resolution.Valid {
			q.Resolution = resolution.String
		}
		details.Qualities = append(details.Qualities, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	subRows, err := r.db.Query(`
		SELECT language_code, language_name, subtitle_url
		FROM subtitles WHERE movie_id = $1 ORDER BY language_code`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtitles: %w", err)
	}
	defer func() {
		if err := subRows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	for subRows.Next() {
		var s models.Subtitle
		if err := subRows.Scan(&s.LanguageCode, &s.LanguageName, &s.URL); err != nil {
			return nil, fmt.Errorf("failed to scan subtitle: %w", err)
		}
		details.Subtitles = append(details.Subtitles, s)
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return details, nil
}

// DownloadLink resolves a title substring, exact language, and exact quality
// code to a single download. When several movies match, the newest wins.
func (r *MovieRepository) DownloadLink(title, language, quality string) (*models.DownloadInfo, error) {
	info := &models.DownloadInfo{}
	var year sql.NullInt64
	var size sql.NullString

	err := r.db.QueryRow(`
		SELECT m.id, m.title, m.year, m.language, q.id, q.quality_name,
		       q.file_size, q.download_url, q.file_path
		FROM movies m
		JOIN qualities q ON m.id = q.movie_id
		WHERE LOWER(m.title) LIKE LOWER($1)
		  AND m.language = $2
		  AND q.quality_code = $3
		  AND m.is_active = TRUE
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT 1`,
		"%"+title+"%", language, quality,
	).Scan(&info.MovieID, &info.Title, &year, &info.Language, &info.QualityID,
		&info.QualityName, &size, &info.DownloadURL, &info.FilePath)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get download link: %w", err)
	}

	if year.Valid {
		info.Year = int(year.Int64)
	}
	if size.Valid {
		info.Size = size.String
	}

	return info, nil
}

// Create inserts a movie with its qualities and subtitles as one atomic unit.
// If any insert fails nothing is persisted.
func (r *MovieRepository) Create(input *models.MovieInput) (int, error) {
	if strings.TrimSpace(input.Title) == "" {
		return 0, fmt.Errorf("title is required")
	}

	language := input.Language
	if language == "" {
		language = "english"
	}
	genre := input.Genre
	if genre == "" {
		genre = "Unknown"
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback()
	}()

	var movieID int
	err = tx.QueryRow(`
		INSERT INTO movies (title, year, description, poster_url, language,
		                    genre, duration, rating, imdb_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		input.Title, nullInt(input.Year), nullString(input.Description),
		nullString(input.PosterURL), language, genre, nullInt(input.Duration),
		nullFloat64(input.Rating), nullString(input.IMDBID),
	).Scan(&movieID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movie: %w", err)
	}

	for _, q := range input.Qualities {
		_, err := tx.Exec(`
			INSERT INTO qualities (movie_id, quality_code, quality_name, file_size,
			                       file_path, download_url, duration_seconds, bitrate, resolution)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			movieID, q.Code, q.Name, nullString(q.Size), q.FilePath, q.DownloadURL,
			nullInt(q.DurationSeconds), nullString(q.Bitrate), nullString(q.Resolution),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert quality %q: %w", q.Code, err)
		}
	}

	for _, s := range input.Subtitles {
		_, err := tx.Exec(`
			INSERT INTO subtitles (movie_id, language_code, language_name, subtitle_url)
			VALUES ($1, $2, $3, $4)`,
			movieID, s.LanguageCode, s.LanguageName, s.URL,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert subtitle %q: %w", s.LanguageCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit movie insert: %w", err)
	}

	return movieID, nil
}

// Update applies a sparse field update. Field names outside the allow-list
// are rejected with models.ErrInvalidField. Returns whether a row changed.
func (r *MovieRepository) Update(id int, fields map[string]interface{}) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}

	var setClauses []string
	var args []interface{}
	for column, value := range fields {
		if !updatableMovieColumns[column] {
			return false, fmt.Errorf("cannot update column %q: %w", column, models.ErrInvalidField)
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE movies SET %s, updated_at = CURRENT_TIMESTAMP WHERE id = $%d",
		strings.Join(setClauses, ", "), len(args),
	)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update movie: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

// Delete removes a movie row; qualities and subtitles cascade at the storage
// layer. The file paths of the removed qualities are returned so the caller
// can reap the physical files. Paths are only returned for a committed
// delete; a missing movie yields models.ErrNotFound and no paths.
func (r *MovieRepository) Delete(id int) ([]string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.Query(`SELECT file_path FROM qualities WHERE movie_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query file paths: %w", err)
	}

	var filePaths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file path: %w", err)
		}
		filePaths = append(filePaths, path)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close rows: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete movie: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, models.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit movie delete: %w", err)
	}

	return filePaths, nil
}

// GetAll returns admin summaries of all movies, newest first, each with its
// quality count and distinct watchlist-entry count.
func (r *MovieRepository) GetAll(limit int) ([]models.MovieSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(`
		SELECT m.id, m.title, m.year, m.description, m.poster_url, m.language,
		       m.genre, m.duration, m.rating, m.imdb_id, m.is_active,
		       m.created_at, m.updated_at,
		       COUNT(DISTINCT q.id) AS quality_count,
		       COUNT(DISTINCT w.id) AS watchlist_count
		FROM movies m
		LEFT JOIN qualities q ON m.id = q.movie_id
		LEFT JOIN watchlist w ON m.id = w.movie_id
		GROUP BY m.id
		ORDER BY m.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var summaries []models.MovieSummary
	for rows.Next() {
		var s models.MovieSummary
		var year, duration sql.NullInt64
		var description, posterURL, genre, imdbID sql.NullString
		var rating sql.NullFloat64

		err := rows.Scan(
			&s.ID, &s.Title, &year, &description, &posterURL, &s.Language,
			&genre, &duration, &rating, &imdbID, &s.IsActive,
			&s.CreatedAt, &s.UpdatedAt, &s.QualityCount, &s.WatchlistCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie summary: %w", err)
		}

		if year.Valid {
			s.Year = int(year.Int64)
		}
		if description.Valid {
			s.Description = description.String
		}
		if posterURL.Valid {
			s.PosterURL = posterURL.String
		}
		if genre.Valid {
			s.Genre = genre.String
		}
		if duration.Valid {
			s.Duration = int(duration.Int64)
		}
		if rating.Valid {
			s.Rating = rating.Float64
		}
		if imdbID.Valid {
			s.IMDBID = imdbID.String
		}

		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return summaries, nil
}

// ActiveFilePaths returns the storage names of every quality file currently
// referenced by the catalog. Used by the orphan cleanup job.
func (r *MovieRepository) ActiveFilePaths() (map[string]bool, error) {
	rows, err := r.db.Query(`SELECT file_path FROM qualities`)
	if err != nil {
		return nil, fmt.Errorf("failed to query file paths: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	paths := make(map[string]bool)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan file path: %w", err)
		}
		paths[path] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return paths, nil
}

// Helper functions for handling null values
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

func nullFloat64(f float64) sql.NullFloat64 {
	if f == 0.0 {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
