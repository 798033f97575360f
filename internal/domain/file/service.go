package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/datatypes"

	"intakeflow/internal/ingest"
	"intakeflow/internal/pkg/logger"
	"intakeflow/internal/storage"
)

const (
	APIBase           = "/api/v1/files"
	thumbnailCacheTTL = 10 * time.Minute
)

// Scheduler starts background enrichment for a stored audio file.
type Scheduler interface {
	Schedule(fileID, actor string)
}

// RegisterInput carries the business classification sent alongside the file.
type RegisterInput struct {
	BusinessType string
	BusinessID   string
	ProjectID    string
	Actor        string
}

type Service struct {
	repo      Repository
	store     storage.Store
	scheduler Scheduler
	thumbs    *expirable.LRU[string, []byte]
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, store storage.Store, scheduler Scheduler, thumbCacheSize int, log *logger.Logger) *Service {
	if thumbCacheSize <= 0 {
		thumbCacheSize = 256
	}
	return &Service{
		repo:      repo,
		store:     store,
		scheduler: scheduler,
		thumbs:    expirable.NewLRU[string, []byte](thumbCacheSize, nil, thumbnailCacheTTL),
		log:       log.With("service", "FileService"),
		now:       time.Now,
	}
}

// Register persists a received upload. Content identical to a live file
// (same hash, same project when one is given) reuses that file's storage
// object; a new row is still created. Audio files are handed to the
// scheduler. The upload's temp file is always removed.
func (s *Service) Register(ctx context.Context, up *ingest.Upload, in RegisterInput) (*UploadResult, error) {
	defer up.Cleanup()

	businessType := strings.TrimSpace(in.BusinessType)
	if businessType == "" {
		businessType = BusinessGeneral
	}
	if !businessTypes[businessType] {
		return nil, ErrInvalidBusinessType
	}

	projectID := optional(in.ProjectID)
	existing, err := s.repo.FindByHash(ctx, up.Hash, projectID)
	if err != nil && !errors.Is(err, ErrFileNotFound) {
		return nil, fmt.Errorf("lookup by hash: %w", err)
	}

	var f *File
	if existing != nil {
		f, err = s.registerDuplicate(ctx, up, existing, businessType, in)
	} else {
		f, err = s.registerNew(ctx, up, businessType, in)
	}
	if err != nil {
		return nil, err
	}

	if f.IsAudio() && s.scheduler != nil {
		s.scheduler.Schedule(f.ID, in.Actor)
	}
	return toUploadResult(f, existing != nil), nil
}

func (s *Service) registerDuplicate(ctx context.Context, up *ingest.Upload, existing *File, businessType string, in RegisterInput) (*File, error) {
	if err := s.saveUpload(ctx, up, existing.StoragePath); err != nil {
		return nil, err
	}

	f := &File{
		ID:               uuid.NewString(),
		ProjectID:        optional(in.ProjectID),
		OriginalFilename: up.Filename,
		Filename:         existing.Filename,
		FileSize:         existing.FileSize,
		MimeType:         existing.MimeType,
		Extension:        existing.Extension,
		StoragePath:      existing.StoragePath,
		StorageType:      existing.StorageType,
		FileHash:         existing.FileHash,
		BusinessType:     businessType,
		BusinessID:       optional(in.BusinessID),
		Metadata:         copyMetadata(existing.Metadata),
		Tags:             existing.Tags,
		UploadedBy:       optional(in.Actor),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("save duplicate file record: %w", err)
	}
	s.log.Info("deduplicated upload", "file_id", f.ID, "source_file_id", existing.ID, "hash", f.FileHash)
	return f, nil
}

func (s *Service) registerNew(ctx context.Context, up *ingest.Upload, businessType string, in RegisterInput) (*File, error) {
	now := s.now().UTC()
	id := uuid.NewString()
	ext := extensionFor(up.Filename, up.MimeType)
	storedName := id + ext
	dir := fmt.Sprintf("%s/%d/%02d/%02d", businessType, now.Year(), now.Month(), now.Day())
	storagePath := dir + "/" + storedName

	if err := s.saveUpload(ctx, up, storagePath); err != nil {
		return nil, err
	}

	metadata := datatypes.JSONMap{}
	var thumbPath string
	if canThumbnail(up.MimeType) {
		thumbPath = s.storeThumbnail(ctx, up, businessType, now, id)
		if thumbPath != "" {
			metadata["thumbnail"] = thumbPath
			metadata["thumbnailSize"] = thumbnailMaxSide
		}
	}

	f := &File{
		ID:               id,
		ProjectID:        optional(in.ProjectID),
		OriginalFilename: up.Filename,
		Filename:         storedName,
		FileSize:         up.Size,
		MimeType:         up.MimeType,
		Extension:        optional(ext),
		StoragePath:      storagePath,
		StorageType:      s.store.Type(),
		FileHash:         up.Hash,
		BusinessType:     businessType,
		BusinessID:       optional(in.BusinessID),
		Metadata:         metadata,
		Tags:             datatypes.JSON("[]"),
		UploadedBy:       optional(in.Actor),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		_ = s.store.Delete(ctx, storagePath)
		if thumbPath != "" {
			_ = s.store.Delete(ctx, thumbPath)
		}
		return nil, fmt.Errorf("save file record: %w", err)
	}
	s.log.Info("stored upload", "file_id", f.ID, "size", f.FileSize, "mime_type", f.MimeType, "path", storagePath)
	return f, nil
}

func (s *Service) saveUpload(ctx context.Context, up *ingest.Upload, path string) error {
	src, err := up.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	if _, err := s.store.Save(ctx, path, src); err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}

// storeThumbnail returns the stored thumbnail path, or "" when the image
// could not be thumbnailed. Failures never fail the upload.
func (s *Service) storeThumbnail(ctx context.Context, up *ingest.Upload, businessType string, now time.Time, id string) string {
	src, err := up.Open()
	if err != nil {
		s.log.Warn("thumbnail skipped", "error", err)
		return ""
	}
	defer src.Close()

	data, err := makeThumbnail(src)
	if err != nil {
		s.log.Warn("thumbnail skipped", "filename", up.Filename, "error", err)
		return ""
	}
	path := fmt.Sprintf("thumbnails/%s/%d/%02d/%02d/thumb_%s.jpg", businessType, now.Year(), now.Month(), now.Day(), id)
	if _, err := s.store.Save(ctx, path, bytes.NewReader(data)); err != nil {
		s.log.Warn("thumbnail save failed", "path", path, "error", err)
		return ""
	}
	s.thumbs.Add(path, data)
	return path
}

func (s *Service) GetInfo(ctx context.Context, id string) (*File, error) {
	return s.repo.GetByID(ctx, id)
}

// Content loads a live file's bytes, or its thumbnail when thumbnail is set.
func (s *Service) Content(ctx context.Context, id string, thumbnail bool) (*Content, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if thumbnail {
		path := f.ThumbnailPath()
		if path == "" {
			return nil, ErrThumbnailNotFound
		}
		data, ok := s.thumbs.Get(path)
		if !ok {
			data, err = s.store.Get(ctx, path)
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrThumbnailNotFound
			}
			if err != nil {
				return nil, fmt.Errorf("read thumbnail: %w", err)
			}
			s.thumbs.Add(path, data)
		}
		return &Content{
			Data:      data,
			Filename:  "thumb_" + strings.TrimSuffix(f.OriginalFilename, filepath.Ext(f.OriginalFilename)) + ".jpg",
			MimeType:  "image/jpeg",
			UpdatedAt: f.UpdatedAt,
		}, nil
	}

	data, err := s.store.Get(ctx, f.StoragePath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrContentMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return &Content{Data: data, Filename: f.OriginalFilename, MimeType: f.MimeType, UpdatedAt: f.UpdatedAt}, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	q.applyDefaults()
	files, analyzed, total, err := s.repo.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	items := make([]ListItem, 0, len(files))
	for _, f := range files {
		items = append(items, ListItem{
			ID:               f.ID,
			OriginalFilename: f.OriginalFilename,
			FileSize:         f.FileSize,
			MimeType:         f.MimeType,
			BusinessType:     f.BusinessType,
			ProjectID:        f.ProjectID,
			URL:              fileURL(f.ID),
			ThumbnailURL:     thumbnailURL(f),
			HasAnalyzed:      analyzed[f.ID],
			CreatedAt:        f.CreatedAt,
		})
	}
	return &ListResult{Files: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Delete soft-deletes the row. Stored content stays in place because other
// rows may share it.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if err := s.repo.SoftDelete(ctx, id, actor); err != nil {
		return err
	}
	s.log.Info("file deleted", "file_id", id, "actor", actor)
	return nil
}

func toUploadResult(f *File, dedup bool) *UploadResult {
	return &UploadResult{
		ID:               f.ID,
		OriginalFilename: f.OriginalFilename,
		FileSize:         f.FileSize,
		MimeType:         f.MimeType,
		URL:              fileURL(f.ID),
		ThumbnailURL:     thumbnailURL(f),
		Deduplicated:     dedup,
	}
}

func fileURL(id string) string {
	return APIBase + "/" + id
}

func thumbnailURL(f *File) *string {
	if f.ThumbnailPath() == "" {
		return nil
	}
	u := fileURL(f.ID) + "?thumbnail=true"
	return &u
}

func extensionFor(filename, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && len(ext) <= maxExtensionLen {
		return ext
	}
	return mimeToExt(mimeType)
}

func mimeToExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func copyMetadata(m datatypes.JSONMap) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
