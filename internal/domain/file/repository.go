package file

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, id string) (*File, error)
	// GetByIDUnscoped also returns soft-deleted rows.
	GetByIDUnscoped(ctx context.Context, id string) (*File, error)
	// FindByHash returns the newest live file with the given content hash.
	// A nil projectID matches files in any project.
	FindByHash(ctx context.Context, hash string, projectID *string) (*File, error)
	FindMany(ctx context.Context, q ListQuery) ([]*File, map[string]bool, int64, error)
	SoftDelete(ctx context.Context, id, actor string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

const (
	maxFilenameLen     = 255
	maxMimeTypeLen     = 100
	maxExtensionLen    = 10
	maxStoragePathLen  = 500
	maxStorageTypeLen  = 20
	maxBusinessTypeLen = 50
)

func (r *repository) Create(ctx context.Context, f *File) error {
	f.OriginalFilename = clip(f.OriginalFilename, maxFilenameLen)
	f.Filename = clip(f.Filename, maxFilenameLen)
	f.MimeType = clip(f.MimeType, maxMimeTypeLen)
	f.StoragePath = clip(f.StoragePath, maxStoragePathLen)
	f.StorageType = clip(f.StorageType, maxStorageTypeLen)
	f.BusinessType = clip(f.BusinessType, maxBusinessTypeLen)
	if f.Extension != nil {
		ext := clip(*f.Extension, maxExtensionLen)
		f.Extension = &ext
	}
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *repository) GetByID(ctx context.Context, id string) (*File, error) {
	var f File
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) GetByIDUnscoped(ctx context.Context, id string) (*File, error) {
	var f File
	err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) FindByHash(ctx context.Context, hash string, projectID *string) (*File, error) {
	q := r.db.WithContext(ctx).Where("file_hash = ?", hash)
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	}
	var f File
	err := q.Order("created_at DESC").First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// analyzedExpr is true when an intake has been projected from the file.
const analyzedExpr = "EXISTS (SELECT 1 FROM intakes WHERE intakes.source_file_id = files.id)"

var sortColumns = map[string]string{
	"createdAt":        "created_at",
	"originalFilename": "original_filename",
	"fileSize":         "file_size",
	"mimeType":         "mime_type",
}

// FindMany returns one page of live files, a set of the returned ids that
// have an intake, and the total match count.
func (r *repository) FindMany(ctx context.Context, q ListQuery) ([]*File, map[string]bool, int64, error) {
	q.applyDefaults()

	base := r.db.WithContext(ctx).Model(&File{})
	if q.ProjectID != "" {
		base = base.Where("project_id = ?", q.ProjectID)
	}
	if q.BusinessType != "" {
		base = base.Where("business_type = ?", q.BusinessType)
	}
	switch q.Type {
	case "audio":
		base = base.Where("mime_type LIKE ?", "audio/%")
	case "image":
		base = base.Where("mime_type LIKE ?", "image/%")
	case "document":
		base = base.Where("mime_type IN ?", documentMimeTypes)
	case "transcript":
		base = base.Where("mime_type LIKE ?", "text/%")
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		base = base.Where("LOWER(original_filename) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(s))+"%")
	}
	switch q.HasAnalyzed {
	case "yes":
		base = base.Where(analyzedExpr)
	case "no":
		base = base.Where("NOT " + analyzedExpr)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, 0, err
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	var files []*File
	err := base.Session(&gorm.Session{}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: q.SortOrder != "asc"}).
		Order("id").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&files).Error
	if err != nil {
		return nil, nil, 0, err
	}

	analyzed := make(map[string]bool, len(files))
	if len(files) > 0 {
		ids := make([]string, 0, len(files))
		for _, f := range files {
			ids = append(ids, f.ID)
		}
		var hits []string
		err := r.db.WithContext(ctx).Table("intakes").
			Where("source_file_id IN ?", ids).
			Pluck("source_file_id", &hits).Error
		if err != nil {
			return nil, nil, 0, err
		}
		for _, id := range hits {
			analyzed[id] = true
		}
	}
	return files, analyzed, total, nil
}

func (r *repository) SoftDelete(ctx context.Context, id, actor string) error {
	updates := map[string]any{"deleted_at": time.Now().UTC()}
	if actor != "" {
		updates["deleted_by"] = actor
	}
	res := r.db.WithContext(ctx).Model(&File{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}
