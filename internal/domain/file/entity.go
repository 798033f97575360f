package file

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// File is one logical upload. Several rows may share a storage path when
// their content hashes match.
type File struct {
	ID               string            `gorm:"column:id;primaryKey;size:36" json:"id"`
	ProjectID        *string           `gorm:"column:project_id;size:64;index:idx_files_hash_project,priority:2" json:"projectId"`
	OriginalFilename string            `gorm:"column:original_filename;size:255" json:"originalFilename"`
	Filename         string            `gorm:"column:filename;size:255" json:"filename"`
	FileSize         int64             `gorm:"column:file_size" json:"fileSize"`
	MimeType         string            `gorm:"column:mime_type;size:100;index" json:"mimeType"`
	Extension        *string           `gorm:"column:extension;size:10" json:"extension"`
	StoragePath      string            `gorm:"column:storage_path;size:500" json:"-"`
	StorageType      string            `gorm:"column:storage_type;size:20" json:"storageType"`
	FileHash         string            `gorm:"column:file_hash;size:64;index:idx_files_hash_project,priority:1" json:"fileHash"`
	BusinessType     string            `gorm:"column:business_type;size:50;index" json:"businessType"`
	BusinessID       *string           `gorm:"column:business_id;size:64" json:"businessId"`
	Metadata         datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	Tags             datatypes.JSON    `gorm:"column:tags" json:"tags"`
	UploadedBy       *string           `gorm:"column:uploaded_by;size:64" json:"uploadedBy"`
	CreatedAt        time.Time         `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt        time.Time         `gorm:"column:updated_at" json:"updatedAt"`
	DeletedAt        gorm.DeletedAt    `gorm:"column:deleted_at;index" json:"-"`
	DeletedBy        *string           `gorm:"column:deleted_by;size:64" json:"-"`
}

func (File) TableName() string { return "files" }

func (f *File) IsAudio() bool {
	return strings.HasPrefix(f.MimeType, "audio/")
}

// ThumbnailPath returns the storage path of the generated thumbnail, if any.
func (f *File) ThumbnailPath() string {
	if f.Metadata == nil {
		return ""
	}
	p, _ := f.Metadata["thumbnail"].(string)
	return p
}

// Business classifications accepted on upload.
const (
	BusinessGeneral = "general"
	BusinessProject = "project"
	BusinessMeeting = "meeting"
	BusinessIntake  = "intake"
	BusinessAvatar  = "avatar"
)

var businessTypes = map[string]bool{
	BusinessGeneral: true,
	BusinessProject: true,
	BusinessMeeting: true,
	BusinessIntake:  true,
	BusinessAvatar:  true,
}

// AllowedMimeTypes defines which declared types the upload gateway accepts.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"application/pdf":    true,
	"text/plain":         true,
	"audio/mpeg":         true,
	"audio/mp3":          true,
	"audio/wav":          true,
	"audio/x-wav":        true,
	"audio/mp4":          true,
	"audio/x-m4a":        true,
	"audio/webm":         true,
	"audio/ogg":          true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.ms-excel":                                                  true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/zip": true,
}

// documentMimeTypes backs the "document" list filter.
var documentMimeTypes = []string{
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}
