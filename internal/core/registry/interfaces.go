package registry

import (
	"time"

	"github.com/zeusync/posebridge/internal/core/transform"
)

// Observation is one live entity as reported by the host for the current tick.
type Observation struct {
	ID         uint64
	Name       string
	ModelID    uint32
	ObservedAt time.Time
	Position   *transform.Vec3
	Rotation   *transform.Quat
	Scale      *transform.Vec3
}

// SnapshotProvider yields the set of live entities once per tick.
type SnapshotProvider interface {
	Snapshot() []Observation
}

// PoseBackend serializes and applies whole-body poses and rigid transforms.
// Calls are expected to be fast local IPC.
type PoseBackend interface {
	Available() bool
	GetPose(id uint64) (string, bool)
	SetPose(id uint64, doc string) bool
	GetTransform(id uint64) (transform.Transform, bool)
	SetTransform(id uint64, t transform.Transform, additive bool) bool
}
