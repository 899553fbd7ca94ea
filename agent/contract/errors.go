package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("record not found")
	ErrExtraction      = errors.New("extraction yielded no usable data")
	ErrPersistence     = errors.New("persistence failed")
	ErrNotification    = errors.New("notification failed")
)
