package models

import "time"

// User roles recognized by the catalog.
const (
	RoleAdmin     = "admin"
	RoleUser      = "user"
	RoleModerator = "moderator"
)

// User is an account row. PasswordHash is opaque to the application.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login,omitempty"`
}

// WatchlistEntry links a user to a movie. A user may watchlist a movie at
// most once.
type WatchlistEntry struct {
	ID      int       `json:"id"`
	UserID  int       `json:"user_id"`
	MovieID int       `json:"movie_id"`
	AddedAt time.Time `json:"added_at"`
}

// DownloadLogEntry is an append-only audit record for one download request.
type DownloadLogEntry struct {
	ID           int       `json:"id"`
	MovieID      int       `json:"movie_id"`
	QualityID    int       `json:"quality_id"`
	UserIP       string    `json:"user_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// LanguageCount is one row of the top-languages rollup.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// DashboardStats is the best-effort admin dashboard rollup.
type DashboardStats struct {
	TotalMovies    int             `json:"total_movies"`
	TotalDownloads int             `json:"total_downloads"`
	TotalUsers     int             `json:"total_users"`
	DatabaseSize   string          `json:"database_size,omitempty"`
	TopLanguages   []LanguageCount `json:"top_languages"`
}
