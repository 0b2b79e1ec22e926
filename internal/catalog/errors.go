package catalog

import "errors"

var (
	ErrDraftNotFound        = errors.New("draft not found")
	ErrDraftAlreadyReviewed = errors.New("draft already reviewed")
)
