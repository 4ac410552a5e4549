package repository

import (
	"testing"

	"netbox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadLogRepository_Log(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDownloadLogRepository(db)
	movies := NewMovieRepository(db)

	id := insertMovie(t, movies, "Logged", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "l.mp4", DownloadURL: "/api/movies/l.mp4"})

	info, err := movies.DownloadLink("Logged", "english", "720p")
	require.NoError(t, err)

	require.NoError(t, repo.Log(info.MovieID, info.QualityID, "203.0.113.9", "curl/8.0"))
	require.NoError(t, repo.Log(info.MovieID, info.QualityID, "", ""))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM download_log WHERE movie_id = $1`, id).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestDownloadLogRepository_LogSurvivesMovieDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDownloadLogRepository(db)
	movies := NewMovieRepository(db)

	id := insertMovie(t, movies, "Ephemeral", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "e.mp4", DownloadURL: "/api/movies/e.mp4"})

	info, err := movies.DownloadLink("Ephemeral", "english", "720p")
	require.NoError(t, err)
	require.NoError(t, repo.Log(info.MovieID, info.QualityID, "203.0.113.9", ""))

	_, err = movies.Delete(id)
	require.NoError(t, err)

	// Audit rows outlive the catalog entry.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM download_log WHERE movie_id = $1`, id).Scan(&count))
	assert.Equal(t, 1, count)
}
