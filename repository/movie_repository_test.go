package repository

import (
	"os"
	"testing"

	"netbox/database"
	"netbox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL, initializes
// the schema, and empties the catalog tables. Tests are skipped when no test
// database is configured.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database integration tests")
	}

	db, err := database.NewDB(url)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, db.InitSchema())

	_, err = db.Exec(`TRUNCATE movies, qualities, subtitles, watchlist, download_log RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
	})
	return db
}

func insertMovie(t *testing.T, repo *MovieRepository, title, language string, qualities ...models.QualityInput) int {
	t.Helper()
	id, err := repo.Create(&models.MovieInput{
		Title:     title,
		Year:      2024,
		Language:  language,
		Qualities: qualities,
	})
	require.NoError(t, err)
	return id
}

func TestMovieRepository_CreateAndGetByID(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))

	id := insertMovie(t, repo, "Inception", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", Size: "1.4GB", FilePath: "abc_inception.mp4", DownloadURL: "/api/movies/abc_inception.mp4"},
		models.QualityInput{Code: "1080p", Name: "1080p Full HD", Size: "2.8GB", FilePath: "def_inception.mp4", DownloadURL: "/api/movies/def_inception.mp4"},
	)

	details, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Inception", details.Title)
	assert.Equal(t, "english", details.Language)
	require.Len(t, details.Qualities, 2)
	assert.Equal(t, "1080p", details.Qualities[0].Code)
	assert.Equal(t, "720p", details.Qualities[1].Code)
	assert.NotNil(t, details.Subtitles)
}

func TestMovieRepository_CreateAndGetByID_Subtitles(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))

	id, err := repo.Create(&models.MovieInput{
		Title:    "Subtitled",
		Language: "english",
		Qualities: []models.QualityInput{
			{Code: "720p", Name: "720p HD", FilePath: "s.mp4", DownloadURL: "/api/movies/s.mp4"},
		},
		Subtitles: []models.SubtitleInput{
			{LanguageCode: "fr", LanguageName: "French", URL: "/subs/s.fr.srt"},
			{LanguageCode: "en", LanguageName: "English", URL: "/subs/s.en.srt"},
		},
	})
	require.NoError(t, err)

	details, err := repo.GetByID(id)
	require.NoError(t, err)
	require.Len(t, details.Subtitles, 2)
	assert.Equal(t, models.Subtitle{LanguageCode: "en", LanguageName: "English", URL: "/subs/s.en.srt"}, details.Subtitles[0])
	assert.Equal(t, models.Subtitle{LanguageCode: "fr", LanguageName: "French", URL: "/subs/s.fr.srt"}, details.Subtitles[1])
}

func TestMovieRepository_Create_DuplicateQualityRollsBack(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))

	_, err := repo.Create(&models.MovieInput{
		Title:    "Doomed",
		Language: "english",
		Qualities: []models.QualityInput{
			{Code: "720p", Name: "720p HD", FilePath: "a.mp4", DownloadURL: "/api/movies/a.mp4"},
			{Code: "720p", Name: "720p HD again", FilePath: "b.mp4", DownloadURL: "/api/movies/b.mp4"},
		},
	})
	require.Error(t, err)

	// The whole insert rolled back: no movie row survives.
	movies, err := repo.Search("Doomed", "", 0)
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestMovieRepository_Search_CaseInsensitive(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	insertMovie(t, repo, "Sample Movie", "english")

	lower, err := repo.Search("sample", "", 0)
	require.NoError(t, err)
	upper, err := repo.Search("SAMPLE", "", 0)
	require.NoError(t, err)

	assert.Equal(t, lower, upper)
	require.Len(t, lower, 1)
	assert.Equal(t, "Sample Movie", lower[0].Title)
}

func TestMovieRepository_Search_LanguageExactAndOrdering(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	insertMovie(t, repo, "Zulu", "english")
	insertMovie(t, repo, "Alpha", "english")
	insertMovie(t, repo, "Autre", "french")

	movies, err := repo.Search("", "english", 0)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Alpha", movies[0].Title)
	assert.Equal(t, "Zulu", movies[1].Title)

	// "eng" is not an exact language match.
	none, err := repo.Search("", "eng", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMovieRepository_Search_QualitiesNeverNull(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	insertMovie(t, repo, "Bare", "english")
	insertMovie(t, repo, "Rich", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "r.mp4", DownloadURL: "/api/movies/r.mp4"})

	movies, err := repo.Search("", "english", 0)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	for _, m := range movies {
		assert.NotNil(t, m.Qualities, "movie %q", m.Title)
	}
	assert.Empty(t, movies[0].Qualities)
	assert.Len(t, movies[1].Qualities, 1)
}

func TestMovieRepository_DownloadLink(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	insertMovie(t, repo, "Inception", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", Size: "1.4GB", FilePath: "abc.mp4", DownloadURL: "/api/movies/abc.mp4"})

	info, err := repo.DownloadLink("incep", "english", "720p")
	require.NoError(t, err)
	assert.Equal(t, "Inception", info.Title)
	assert.Equal(t, "720p HD", info.QualityName)
	assert.Equal(t, "/api/movies/abc.mp4", info.DownloadURL)

	_, err = repo.DownloadLink("incep", "english", "1080p")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.DownloadLink("incep", "french", "720p")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMovieRepository_DownloadLink_NewestWins(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	insertMovie(t, repo, "Inception", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "old.mp4", DownloadURL: "/api/movies/old.mp4"})
	insertMovie(t, repo, "Inception Again", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "new.mp4", DownloadURL: "/api/movies/new.mp4"})

	info, err := repo.DownloadLink("inception", "english", "720p")
	require.NoError(t, err)
	assert.Equal(t, "/api/movies/new.mp4", info.DownloadURL)
}

func TestMovieRepository_Update(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	id := insertMovie(t, repo, "Draft Title", "english")

	updated, err := repo.Update(id, map[string]interface{}{"title": "Final Title", "rating": 8.8})
	require.NoError(t, err)
	assert.True(t, updated)

	details, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Final Title", details.Title)
	assert.Equal(t, 8.8, details.Rating)
}

func TestMovieRepository_Update_RejectsUnknownColumn(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	id := insertMovie(t, repo, "Locked", "english")

	_, err := repo.Update(id, map[string]interface{}{"password_hash": "x"})
	assert.ErrorIs(t, err, models.ErrInvalidField)

	// The movie is untouched.
	details, err := repo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "Locked", details.Title)
}

func TestMovieRepository_Update_MissingMovie(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))

	updated, err := repo.Update(99999, map[string]interface{}{"title": "Ghost"})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestMovieRepository_SoftDeleteHidesFromReads(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	id := insertMovie(t, repo, "Fading", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "f.mp4", DownloadURL: "/api/movies/f.mp4"})

	updated, err := repo.Update(id, map[string]interface{}{"is_active": false})
	require.NoError(t, err)
	assert.True(t, updated)

	_, err = repo.GetByID(id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	movies, err := repo.Search("Fading", "", 0)
	require.NoError(t, err)
	assert.Empty(t, movies)

	_, err = repo.DownloadLink("Fading", "english", "720p")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMovieRepository_Delete(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	id := insertMovie(t, repo, "Condemned", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "c1.mp4", DownloadURL: "/api/movies/c1.mp4"},
		models.QualityInput{Code: "1080p", Name: "1080p Full HD", FilePath: "c2.mp4", DownloadURL: "/api/movies/c2.mp4"})

	paths, err := repo.Delete(id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1.mp4", "c2.mp4"}, paths)

	_, err = repo.GetByID(id)
	assert.ErrorIs(t, err, models.ErrNotFound)

	movies, err := repo.Search("Condemned", "", 0)
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestMovieRepository_Delete_NotFound(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))

	_, err := repo.Delete(99999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMovieRepository_GetAll_Counts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMovieRepository(db)
	watchlist := NewWatchlistRepository(db)

	id := insertMovie(t, repo, "Popular", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "p.mp4", DownloadURL: "/api/movies/p.mp4"})
	insertMovie(t, repo, "Quiet", "english")

	for userID := 1; userID <= 3; userID++ {
		_, err := watchlist.Add(userID, id)
		require.NoError(t, err)
	}

	summaries, err := repo.GetAll(0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byTitle := map[string]models.MovieSummary{}
	for _, s := range summaries {
		byTitle[s.Title] = s
	}
	assert.Equal(t, 1, byTitle["Popular"].QualityCount)
	assert.Equal(t, 3, byTitle["Popular"].WatchlistCount)
	assert.Equal(t, 0, byTitle["Quiet"].QualityCount)
	assert.Equal(t, 0, byTitle["Quiet"].WatchlistCount)
}

func TestMovieRepository_ActiveFilePaths(t *testing.T) {
	repo := NewMovieRepository(setupTestDB(t))
	insertMovie(t, repo, "Tracked", "english",
		models.QualityInput{Code: "720p", Name: "720p HD", FilePath: "t1.mp4", DownloadURL: "/api/movies/t1.mp4"},
		models.QualityInput{Code: "1080p", Name: "1080p Full HD", FilePath: "t2.mp4", DownloadURL: "/api/movies/t2.mp4"})

	paths, err := repo.ActiveFilePaths()
	require.NoError(t, err)
	assert.True(t, paths["t1.mp4"])
	assert.True(t, paths["t2.mp4"])
	assert.False(t, paths["never_uploaded.mp4"])
}
