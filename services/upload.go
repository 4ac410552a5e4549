package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"netbox/models"
)

// allowedExtensions lists the accepted upload container formats.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mkv":  true,
	".mov":  true,
	".webm": true,
}

// ValidationError rejects an upload before any side effect happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidation reports whether err is an upload validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CatalogWriter is the slice of the catalog store the orchestrator needs.
type CatalogWriter interface {
	Create(input *models.MovieInput) (int, error)
	Delete(id int) ([]string, error)
}

// UploadService coordinates file writes with catalog metadata so the two can
// never diverge past the end of a request: a failed metadata write removes
// the just-stored file, and a committed delete reaps the files it orphaned.
type UploadService struct {
	files   *FileStore
	catalog CatalogWriter
}

// NewUploadService creates a new upload service
func NewUploadService(files *FileStore, catalog CatalogWriter) *UploadService {
	return &UploadService{files: files, catalog: catalog}
}

// UploadRequest carries one multipart upload.
type UploadRequest struct {
	Title       string
	Year        int
	Description string
	PosterURL   string
	Language    string
	Qualities   []models.QualityInput
	Subtitles   []models.SubtitleInput
	Filename    string
	File        io.Reader
}

// UploadResult reports the created movie and where to fetch it.
type UploadResult struct {
	MovieID     int    `json:"movie_id"`
	StoredName  string `json:"filename"`
	DownloadURL string `json:"download_url"`
}

// Upload runs validate, store file, persist metadata. Validation failures
// are terminal with no side effects. If the metadata write fails after the
// file was stored, the file is removed before the error is returned.
func (s *UploadService) Upload(req *UploadRequest) (*UploadResult, error) {
	if err := validateUpload(req); err != nil {
		return nil, err
	}

	storedName, err := s.files.Save(req.Filename, req.File)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	downloadURL := "/api/movies/" + storedName

	qualities := req.Qualities
	if len(qualities) == 0 {
		qualities = []models.QualityInput{{Code: "720p", Name: "720p HD", Size: "1GB"}}
	}
	for i := range qualities {
		qualities[i].FilePath = storedName
		qualities[i].DownloadURL = downloadURL
	}

	input := &models.MovieInput{
		Title:       req.Title,
		Year:        req.Year,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		Language:    req.Language,
		Qualities:   qualities,
		Subtitles:   req.Subtitles,
	}

	movieID, err := s.catalog.Create(input)
	if err != nil {
		// Compensate: the file must not outlive the failed metadata write.
		if rmErr := s.files.Remove(storedName); rmErr != nil {
			log.Printf("Failed to remove orphaned upload %s: %v", storedName, rmErr)
		}
		return nil, fmt.Errorf("failed to persist movie metadata: %w", err)
	}

	return &UploadResult{
		MovieID:     movieID,
		StoredName:  storedName,
		DownloadURL: downloadURL,
	}, nil
}

// Delete removes the movie from the catalog and then reaps its physical
// files. If the catalog delete fails no files are touched.
func (s *UploadService) Delete(id int) error {
	filePaths, err := s.catalog.Delete(id)
	if err != nil {
		return err
	}

	for _, path := range filePaths {
		if err := s.files.Remove(path); err != nil {
			log.Printf("Failed to remove file %s for deleted movie %d: %v", path, id, err)
		}
	}

	return nil
}

func validateUpload(req *UploadRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Reason: "movie title is required"}
	}
	if req.File == nil || req.Filename == "" {
		return &ValidationError{Reason: "no file uploaded"}
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !allowedExtensions[ext] {
		return &ValidationError{Reason: "file type not allowed. Allowed: MP4, AVI, MKV, MOV, WEBM"}
	}
	return nil
}
