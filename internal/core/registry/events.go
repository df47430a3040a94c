package registry

// Lifecycle event types published on the bus after each Refresh.
const (
	EventEntityAdded       = "entity.added"
	EventEntityRemoved     = "entity.removed"
	EventEntityPoseChanged = "entity.pose_changed"
)

const eventSource = "registry"

// EntityEvent is the payload of every lifecycle event.
type EntityEvent struct {
	ID   uint64
	Name string
}
