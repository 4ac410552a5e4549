// Package main provides the main entry point for the NetBox catalog service.
package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"netbox/database"
	"netbox/jobs"
	"netbox/repository"
	"netbox/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := database.NewDB(databaseURL)
	if err != nil {
		log.Fatal("Failed to configure database:", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	// An unreachable backend at boot degrades the service rather than
	// killing it: static pages and health stay up, data endpoints fail.
	if err := db.Ping(); err != nil {
		log.Printf("Warning: database unreachable at startup: %v", err)
	} else if err := db.InitSchema(); err != nil {
		log.Printf("Warning: schema initialization failed: %v", err)
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "movies"
	}
	fileStore, err := services.NewFileStore(uploadDir)
	if err != nil {
		log.Fatal("Failed to prepare upload directory:", err)
	}

	// Initialize repositories
	movieRepo := repository.NewMovieRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	downloadLogRepo := repository.NewDownloadLogRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	uploadService := services.NewUploadService(fileStore, movieRepo)

	// Background orphan cleanup over the upload directory
	cleanupJob := jobs.NewOrphanCleanupJob(fileStore.Dir(), movieRepo)
	jobManager := jobs.NewJobManager(cleanupJob)
	jobManager.Start()
	defer jobManager.Stop()

	app := &App{
		catalog:   movieRepo,
		uploads:   uploadService,
		watchlist: watchlistRepo,
		downloads: downloadLogRepo,
		stats:     statsRepo,
		files:     fileStore,
	}

	r := mux.NewRouter()

	// Public API
	r.HandleFunc("/api/health", healthHandler).Methods("GET")
	r.HandleFunc("/api/search", app.searchHandler).Methods("GET")
	r.HandleFunc("/api/movies", app.browseMoviesHandler).Methods("GET")
	r.HandleFunc("/api/movies/{filename}", app.serveMovieHandler).Methods("GET")
	r.HandleFunc("/api/watchlist", app.addToWatchlistHandler).Methods("POST")

	// Admin API
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.HandleFunc("/movies", app.getAllMoviesHandler).Methods("GET")
	admin.HandleFunc("/movies/{id:[0-9]+}", app.getMovieByIDHandler).Methods("GET")
	admin.HandleFunc("/movies/{id:[0-9]+}", app.updateMovieHandler).Methods("PUT")
	admin.HandleFunc("/movies/{id:[0-9]+}", app.deleteMovieHandler).Methods("DELETE")
	admin.HandleFunc("/upload", app.uploadMovieHandler).Methods("POST")
	admin.HandleFunc("/stats", app.statsHandler).Methods("GET")

	// Static pages, when present
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "static"
	}
	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("Server starting on :" + port)
	server := &http.Server{
		Addr:    ":" + port,
		Handler: r,
		// Media uploads and downloads can far outlive typical request
		// timeouts, so only the headers are deadlined.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}
