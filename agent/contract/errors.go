package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrValidation      = errors.New("validation failed")
	ErrTranslate       = errors.New("translation failed")
	ErrToolUnavailable = errors.New("tool is not available for this actor")
)
