package intake

import "errors"

var (
	ErrIntakeNotFound = errors.New("intake not found")
	ErrInvalidStatus  = errors.New("invalid intake status")
	ErrTitleRequired  = errors.New("title is required")
)
