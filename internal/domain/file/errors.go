package file

import "errors"

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrThumbnailNotFound   = errors.New("thumbnail not found")
	ErrContentMissing      = errors.New("file content is missing from storage")
	ErrInvalidBusinessType = errors.New("business type is not allowed")
)
