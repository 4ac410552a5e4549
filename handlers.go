package main

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"netbox/models"
	"netbox/repository"
	"netbox/services"

	"github.com/gorilla/mux"
)

// Interfaces the handlers consume. The concrete repository and service types
// satisfy them; tests substitute in-memory fakes.
type catalogStore interface {
	Search(title, language string, limit int) ([]models.MovieWithQualities, error)
	GetByID(id int) (*models.MovieDetails, error)
	DownloadLink(title, language, quality string) (*models.DownloadInfo, error)
	GetAll(limit int) ([]models.MovieSummary, error)
	Update(id int, fields map[string]interface{}) (bool, error)
}

type uploader interface {
	Upload(req *services.UploadRequest) (*services.UploadResult, error)
	Delete(id int) error
}

type watchlistStore interface {
	Add(userID, movieID int) (bool, error)
}

type downloadLogger interface {
	Log(movieID, qualityID int, userIP, userAgent string) error
}

type statsProvider interface {
	Dashboard() *models.DashboardStats
}

// App represents the application with its dependencies
type App struct {
	catalog   catalogStore
	uploads   uploader
	watchlist watchlistStore
	downloads downloadLogger
	stats     statsProvider
	files     *services.FileStore
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// searchResponse is the public search payload.
type searchResponse struct {
	Available    bool         `json:"available"`
	Movie        *searchMovie `json:"movie,omitempty"`
	DownloadLink string       `json:"download_link,omitempty"`
	Message      string       `json:"message,omitempty"`
}

type searchMovie struct {
	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
	Quality  string `json:"quality"`
	Size     string `json:"size,omitempty"`
	Language string `json:"language"`
}

// searchHandler resolves title/lang/quality to a single download link and
// records the hit in the download log.
func (app *App) searchHandler(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = "tamil"
	}
	quality := r.URL.Query().Get("quality")
	if quality == "" {
		quality = "720p"
	}

	info, err := app.catalog.DownloadLink(title, lang, quality)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondJSON(w, http.StatusOK, searchResponse{
				Available: false,
				Message:   `Movie "` + title + `" not found`,
			})
			return
		}
		log.Printf("Error resolving download link: %v", err)
		respondJSON(w, http.StatusInternalServerError, searchResponse{
			Available: false,
			Message:   "search is temporarily unavailable",
		})
		return
	}

	// Fire-and-forget: a failed audit write never fails the download.
	if err := app.downloads.Log(info.MovieID, info.QualityID, clientIP(r), r.UserAgent()); err != nil {
		log.Printf("Failed to log download: %v", err)
	}

	respondJSON(w, http.StatusOK, searchResponse{
		Available: true,
		Movie: &searchMovie{
			Title:    info.Title,
			Year:     info.Year,
			Quality:  info.QualityName,
			Size:     info.Size,
			Language: info.Language,
		},
		DownloadLink: info.DownloadURL,
	})
}

// browseMoviesHandler lists active movies with their quality variants,
// filtered by title substring and language.
func (app *App) browseMoviesHandler(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	lang := r.URL.Query().Get("lang")

	limit := repository.DefaultSearchLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= repository.DefaultListLimit {
		limit = l
	}

	movies, err := app.catalog.Search(title, lang, limit)
	if err != nil {
		log.Printf("Error searching movies: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if movies == nil {
		movies = []models.MovieWithQualities{}
	}
	respondJSON(w, http.StatusOK, movies)
}

func (app *App) getAllMoviesHandler(w http.ResponseWriter, _ *http.Request) {
	movies, err := app.catalog.GetAll(repository.DefaultListLimit)
	if err != nil {
		log.Printf("Error getting movies: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if movies == nil {
		movies = []models.MovieSummary{}
	}
	respondJSON(w, http.StatusOK, movies)
}

func (app *App) getMovieByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid movie ID"})
		return
	}

	movie, err := app.catalog.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "movie not found"})
			return
		}
		log.Printf("Error getting movie by ID: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	respondJSON(w, http.StatusOK, movie)
}

// uploadResponse is the admin upload payload.
type uploadResponse struct {
	Success     bool   `json:"success"`
	MovieID     int    `json:"movie_id,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// uploadMovieHandler accepts a multipart form with the movie metadata and
// file, delegating consistency to the upload service.
func (app *App) uploadMovieHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondJSON(w, http.StatusRequestEntityTooLarge, uploadResponse{Success: false, Error: "upload exceeds the 2GB limit"})
			return
		}
		respondJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Error: "invalid multipart form"})
		return
	}

	year := 2024
	if y, err := strconv.Atoi(r.FormValue("year")); err == nil {
		year = y
	}

	req := &services.UploadRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Year:        year,
		Description: r.FormValue("description"),
		PosterURL:   r.FormValue("poster"),
		Language:    r.FormValue("language"),
		Qualities:   parseQualities(r.FormValue("qualities")),
		Subtitles:   parseSubtitles(r.FormValue("subtitles")),
	}
	if req.Language == "" {
		req.Language = "tamil"
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer func() {
			if err := file.Close(); err != nil {
				log.Printf("Failed to close upload file: %v", err)
			}
		}()
		req.File = file
		req.Filename = header.Filename
	}

	result, err := app.uploads.Upload(req)
	if err != nil {
		if services.IsValidation(err) {
			respondJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Error: err.Error()})
			return
		}
		log.Printf("Upload failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, uploadResponse{Success: false, Error: "failed to store movie"})
		return
	}

	respondJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		MovieID:     result.MovieID,
		DownloadURL: result.DownloadURL,
	})
}

// parseQualities decodes the optional qualities JSON form field. Malformed
// input falls back to the default variant rather than failing the upload.
func parseQualities(raw string) []models.QualityInput {
	if raw == "" {
		return nil
	}
	var qualities []models.QualityInput
	if err := json.Unmarshal([]byte(raw), &qualities); err != nil {
		log.Printf("Ignoring malformed qualities field: %v", err)
		return nil
	}
	return qualities
}

// parseSubtitles decodes the optional subtitles JSON form field with the same
// malformed-input policy as parseQualities.
func parseSubtitles(raw string) []models.SubtitleInput {
	if raw == "" {
		return nil
	}
	var subtitles []models.SubtitleInput
	if err := json.Unmarshal([]byte(raw), &subtitles); err != nil {
		log.Printf("Ignoring malformed subtitles field: %v", err)
		return nil
	}
	return subtitles
}

func (app *App) updateMovieHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid movie ID"})
		return
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request body"})
		return
	}
	delete(fields, "id")

	updated, err := app.catalog.Update(id, fields)
	if err != nil {
		if errors.Is(err, models.ErrInvalidField) {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": err.Error()})
			return
		}
		log.Printf("Error updating movie %d: %v", id, err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "internal server error"})
		return
	}
	if !updated {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "movie not found"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (app *App) deleteMovieHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid movie ID"})
		return
	}

	if err := app.uploads.Delete(id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "movie not found"})
			return
		}
		log.Printf("Error deleting movie %d: %v", id, err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "failed to delete movie"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// serveMovieHandler streams a stored file back as an attachment.
func (app *App) serveMovieHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]

	path, err := app.files.Path(name)
	if err != nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

type watchlistRequest struct {
	UserID  int `json:"user_id"`
	MovieID int `json:"movie_id"`
}

// addToWatchlistHandler is idempotent: re-adding reports added:false.
func (app *App) addToWatchlistHandler(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request body"})
		return
	}
	if req.UserID <= 0 || req.MovieID <= 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "user_id and movie_id are required"})
		return
	}

	added, err := app.watchlist.Add(req.UserID, req.MovieID)
	if err != nil {
		log.Printf("Error adding to watchlist: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "internal server error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "added": added})
}

func (app *App) statsHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, app.stats.Dashboard())
}

// clientIP prefers the forwarded address set by a fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
