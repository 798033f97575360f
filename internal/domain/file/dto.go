package file

import "time"

// ListQuery holds the list filters; zero values mean "no filter".
type ListQuery struct {
	ProjectID    string `form:"projectId" validate:"omitempty,max=64"`
	BusinessType string `form:"businessType" validate:"omitempty,max=50"`
	Type         string `form:"type" validate:"omitempty,oneof=all audio image document transcript"`
	Search       string `form:"search" validate:"omitempty,max=255"`
	SortBy       string `form:"sortBy" validate:"omitempty,oneof=createdAt originalFilename fileSize mimeType"`
	SortOrder    string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	HasAnalyzed  string `form:"hasAnalyzed" validate:"omitempty,oneof=all yes no"`
	Page         int    `form:"page" validate:"omitempty,min=1"`
	Limit        int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

func (q *ListQuery) applyDefaults() {
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.SortBy == "" {
		q.SortBy = "createdAt"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

type ListItem struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"originalFilename"`
	FileSize         int64     `json:"fileSize"`
	MimeType         string    `json:"mimeType"`
	BusinessType     string    `json:"businessType"`
	ProjectID        *string   `json:"projectId"`
	URL              string    `json:"url"`
	ThumbnailURL     *string   `json:"thumbnailUrl,omitempty"`
	HasAnalyzed      bool      `json:"hasAnalyzed"`
	CreatedAt        time.Time `json:"createdAt"`
}

type ListResult struct {
	Files []ListItem `json:"files"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

type UploadResult struct {
	ID               string  `json:"id"`
	OriginalFilename string  `json:"originalFilename"`
	FileSize         int64   `json:"fileSize"`
	MimeType         string  `json:"mimeType"`
	URL              string  `json:"url"`
	ThumbnailURL     *string `json:"thumbnailUrl,omitempty"`
	Deduplicated     bool    `json:"deduplicated"`
}

// Content is a payload ready to stream back to a client.
type Content struct {
	Data      []byte
	Filename  string
	MimeType  string
	UpdatedAt time.Time
}
