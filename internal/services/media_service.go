package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"racingplate/internal/models"
	"racingplate/internal/repositories"
	"racingplate/internal/storage"
	"racingplate/internal/utils"
)

// allowedFileTypes maps declared MIME types to the extension they must carry.
var allowedFileTypes = map[string]string{
	// images
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",

	// documents
	"application/pdf": ".pdf",

	// audio (game sounds etc.)
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",

	// video (replays etc.)
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// jpeg comes in under two extensions
var extAliases = map[string]string{
	".jpeg": ".jpg",
}

var suspiciousExtensions = map[string]bool{
	".php": true, ".js": true, ".exe": true, ".bat": true, ".sh": true,
	".asp": true, ".jsp": true, ".pl": true, ".py": true, ".rb": true,
}

// upload size ceiling per subscription tier
var fileSizeLimits = map[string]int64{
	"free":    5 * 1024 * 1024,
	"premium": 25 * 1024 * 1024,
	"pro":     100 * 1024 * 1024,
}

const (
	MaxFilesPerUpload = 10
	defaultListLimit  = 200
)

type MediaService interface {
	// Upload validates and stores a single file. userID and subscription
	// are zero-valued for anonymous uploads (free-tier limits apply).
	Upload(ctx context.Context, userID *int, subscription string, fh *multipart.FileHeader) (*models.MediaFile, error)
	List(ctx context.Context, userID *int) ([]*models.MediaFile, error)
	SizeLimit(subscription string) int64
}

type mediaService struct {
	repo  repositories.MediaRepository
	store storage.Storage
}

func NewMediaService(repo repositories.MediaRepository, store storage.Storage) MediaService {
	return &mediaService{repo: repo, store: store}
}

func (s *mediaService) SizeLimit(subscription string) int64 {
	if limit, ok := fileSizeLimits[subscription]; ok {
		return limit
	}
	return fileSizeLimits["free"]
}

// validate cross-checks the declared content type against the allow-list and
// the file extension; the declared MIME type is never trusted on its own.
func (s *mediaService) validate(fh *multipart.FileHeader, sizeLimit int64) error {
	name := filepath.Base(fh.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if canonical, ok := extAliases[ext]; ok {
		ext = canonical
	}

	if suspiciousExtensions[ext] {
		return ErrSuspiciousFile
	}

	mimeType := fh.Header.Get("Content-Type")
	expectedExt, ok := allowedFileTypes[mimeType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mimeType)
	}
	if ext != expectedExt {
		return ErrExtensionMismatch
	}

	if fh.Size > sizeLimit {
		return fmt.Errorf("%w: limit is %dMB", ErrFileTooLarge, sizeLimit/(1024*1024))
	}
	return nil
}

func (s *mediaService) Upload(ctx context.Context, userID *int, subscription string, fh *multipart.FileHeader) (*models.MediaFile, error) {
	if fh == nil {
		return nil, ErrNoFile
	}
	if err := s.validate(fh, s.SizeLimit(subscription)); err != nil {
		return nil, err
	}

	filename := utils.NewStoredFilename(fh.Filename)
	prefix := "public"
	if userID != nil {
		prefix = fmt.Sprintf("%d", *userID)
	}
	key := path.Join(prefix, filename)

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType := fh.Header.Get("Content-Type")
	if err := s.store.Save(ctx, key, src, fh.Size, mimeType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	file := &models.MediaFile{
		UserID:       userID,
		Filename:     filename,
		OriginalName: filepath.Base(fh.Filename),
		Size:         fh.Size,
		MimeType:     mimeType,
		StorageKey:   key,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		// keep storage consistent with metadata
		_ = s.store.Delete(ctx, key)
		return nil, err
	}
	file.URL = "/media/" + key
	return file, nil
}

func (s *mediaService) List(ctx context.Context, userID *int) ([]*models.MediaFile, error) {
	var files []*models.MediaFile
	var err error
	if userID != nil {
		files, err = s.repo.ListByUser(ctx, *userID, defaultListLimit)
	} else {
		files, err = s.repo.ListPublic(ctx, defaultListLimit)
	}
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		f.URL = "/media/" + f.StorageKey
	}
	return files, nil
}
