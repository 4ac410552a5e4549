// Package database provides database connectivity and schema management.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq" // Import postgres driver
)

// Pool bounds for the shared connection pool. Every logical operation
// borrows one connection for its duration and returns it on exit.
const (
	maxOpenConns    = 20
	maxIdleConns    = 2
	connMaxLifetime = 30 * time.Minute
)

// DB wraps the SQL database connection pool
type DB struct {
	*sql.DB
}

// NewDB opens a connection pool against the Postgres instance described by
// databaseURL. The URL is normalized to require encrypted transport unless
// the caller explicitly configured an sslmode. Connectivity is not verified
// here; callers decide whether a failing Ping is fatal.
func NewDB(databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	dsn, err := normalizeDSN(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return &DB{db}, nil
}

// normalizeDSN rewrites legacy postgres:// scheme URLs and enforces
// sslmode=require when the URL does not set one.
func normalizeDSN(databaseURL string) (string, error) {
	raw := databaseURL
	if strings.HasPrefix(raw, "postgres://") {
		raw = "postgresql://" + strings.TrimPrefix(raw, "postgres://")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgresql" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// InitSchema creates the catalog tables and indexes if they do not exist and
// seeds the bootstrap admin account. Safe to call on every process start.
func (db *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS movies (
		id SERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		year INTEGER,
		description TEXT,
		poster_url TEXT,
		language VARCHAR(50) NOT NULL,
		genre VARCHAR(100),
		duration INTEGER,
		rating DECIMAL(3,1),
		imdb_id VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		is_active BOOLEAN DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS qualities (
		id SERIAL PRIMARY KEY,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		quality_code VARCHAR(10) NOT NULL,
		quality_name VARCHAR(50) NOT NULL,
		file_size VARCHAR(20),
		file_path TEXT NOT NULL,
		download_url TEXT NOT NULL,
		duration_seconds INTEGER,
		bitrate VARCHAR(20),
		resolution VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(movie_id, quality_code)
	);

	CREATE TABLE IF NOT EXISTS subtitles (
		id SERIAL PRIMARY KEY,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		language_code VARCHAR(10) NOT NULL,
		language_name VARCHAR(50) NOT NULL,
		subtitle_url TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) DEFAULT 'user',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_login TIMESTAMP,
		is_active BOOLEAN DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS watchlist (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, movie_id)
	);

	-- Deliberately unconstrained: log rows are an audit trail and must
	-- survive catalog deletes.
	CREATE TABLE IF NOT EXISTS download_log (
		id SERIAL PRIMARY KEY,
		movie_id INTEGER NOT NULL,
		quality_id INTEGER NOT NULL,
		user_ip VARCHAR(45),
		user_agent TEXT,
		downloaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		download_speed VARCHAR(20)
	);

	CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title);
	CREATE INDEX IF NOT EXISTS idx_movies_language ON movies(language);
	CREATE INDEX IF NOT EXISTS idx_movies_year ON movies(year);
	CREATE INDEX IF NOT EXISTS idx_qualities_movie_id ON qualities(movie_id);
	CREATE INDEX IF NOT EXISTS idx_watchlist_user_id ON watchlist(user_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Println("Database schema initialized")
	return nil
}

// seedAdminUser inserts the bootstrap admin account when no user named
// "admin" exists. The stored hash is a placeholder; real credential handling
// lives outside this service.
func (db *DB) seedAdminUser() error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = $1`, "admin").Scan(&count); err != nil {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := db.Exec(
		`INSERT INTO users (username, email, password_hash, role) VALUES ($1, $2, $3, $4)`,
		"admin", "admin@netbox.com", "hashed_password_here", "admin",
	)
	if err != nil {
		return fmt.Errorf("failed to insert admin user: %w", err)
	}

	log.Println("Default admin user created")
	return nil
}
