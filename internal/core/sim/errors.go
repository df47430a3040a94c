package sim

import "errors"

var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrNoSkeleton       = errors.New("character has no skeleton")
	ErrBoneOutOfRange   = errors.New("bone index out of range")
)
