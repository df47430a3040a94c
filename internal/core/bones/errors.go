package bones

import "errors"

var (
	ErrEmptyTargets = errors.New("bone target map is empty")
	ErrInvalidRate  = errors.New("ease rate must be in (0, 1]")
)
