package bones

import "github.com/zeusync/posebridge/internal/core/transform"

// SkeletonAccessor reads and writes an entity's skeletal rig. It must only be
// called from the tick context.
type SkeletonAccessor interface {
	// PartCount returns the number of skeletal parts on the entity's rig, or an
	// error when the entity has no skeleton.
	PartCount(id uint64) (int, error)
	ResolveBoneIndex(id uint64, part int, name string) (int, bool)
	SetBoneModelSpace(id uint64, part, index int, t transform.Transform) error
}
