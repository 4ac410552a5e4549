// Package models defines the catalog entities and API payload types.
package models

import "time"

// Movie represents a catalog entry. A movie owns zero or more quality
// variants and subtitles; deleting a movie removes both at the storage layer.
type Movie struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Year        int       `json:"year,omitempty"`
	Description string    `json:"description,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Language    string    `json:"language"`
	Genre       string    `json:"genre,omitempty"`
	Duration    int       `json:"duration,omitempty"` // in minutes
	Rating      float64   `json:"rating,omitempty"`
	IMDBID      string    `json:"imdb_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QualityVariant is one encoded rendition of a movie as exposed in search results.
type QualityVariant struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Size string `json:"size,omitempty"`
	URL  string `json:"url"`
}

// Quality is the full quality row. FilePath is the storage-relative name of
// the physical file and is authoritative for deletion.
type Quality struct {
	ID              int    `json:"id"`
	MovieID         int    `json:"movie_id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Size            string `json:"size,omitempty"`
	FilePath        string `json:"file_path,omitempty"`
	DownloadURL     string `json:"url"`
	DurationSeconds int    `json:"duration,omitempty"`
	Bitrate         string `json:"bitrate,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
}

// Subtitle is a subtitle track attached to a movie.
type Subtitle struct {
	LanguageCode string `json:"code"`
	LanguageName string `json:"name"`
	URL          string `json:"url"`
}

// MovieWithQualities is a search result. Qualities is always non-nil,
// empty when the movie has no variants.
type MovieWithQualities struct {
	Movie
	Qualities []QualityVariant `json:"qualities"`
}

// MovieDetails is the full aggregation returned for a single movie lookup.
type MovieDetails struct {
	Movie
	Qualities []Quality  `json:"qualities"`
	Subtitles []Subtitle `json:"subtitles"`
}

// MovieSummary is an admin listing row augmented with per-movie counts.
type MovieSummary struct {
	Movie
	QualityCount   int `json:"quality_count"`
	WatchlistCount int `json:"watchlist_count"`
}

// DownloadInfo describes one resolved download link.
type DownloadInfo struct {
	MovieID     int
	QualityID   int
	Title       string
	Year        int
	QualityName string
	Size        string
	Language    string
	DownloadURL string
	FilePath    string
}

// MovieInput is the payload for creating a movie together with its variants.
type MovieInput struct {
	Title       string          `json:"title"`
	Year        int             `json:"year"`
	Description string          `json:"description"`
	PosterURL   string          `json:"poster_url"`
	Language    string          `json:"language"`
	Genre       string          `json:"genre"`
	Duration    int             `json:"duration"`
	Rating      float64         `json:"rating"`
	IMDBID      string          `json:"imdb_id"`
	Qualities   []QualityInput  `json:"qualities"`
	Subtitles   []SubtitleInput `json:"subtitles"`
}

// QualityInput is one quality variant supplied at creation time.
type QualityInput struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Size            string `json:"size"`
	FilePath        string `json:"file_path"`
	DownloadURL     string `json:"download_url"`
	DurationSeconds int    `json:"duration"`
	Bitrate         string `json:"bitrate"`
	Resolution      string `json:"resolution"`
}

// SubtitleInput is one subtitle track supplied at creation time.
type SubtitleInput struct {
	LanguageCode string `json:"code"`
	LanguageName string `json:"name"`
	URL          string `json:"url"`
}
