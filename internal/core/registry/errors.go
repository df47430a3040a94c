package registry

import "errors"

var (
	ErrNotFound = errors.New("entity not found")
)
