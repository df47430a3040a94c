package registry

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/posebridge/internal/core/events/bus"
	"github.com/zeusync/posebridge/internal/core/observability/log"
	"github.com/zeusync/posebridge/internal/core/transform"
)

// TrackedEntity is the registry's view of one posable entity. Values handed
// out by the registry are copies.
type TrackedEntity struct {
	ID           uint64
	Name         string
	ModelID      uint32
	LastSeen     time.Time
	PoseDocument string
	PoseHash     uint64
	Position     *transform.Vec3
	Rotation     *transform.Quat
	Scale        *transform.Vec3
}

func (e TrackedEntity) clone() TrackedEntity {
	out := e
	t := transform.Transform{Position: e.Position, Rotation: e.Rotation, Scale: e.Scale}.Clone()
	out.Position, out.Rotation, out.Scale = t.Position, t.Rotation, t.Scale
	return out
}

// HasPose reports whether a pose snapshot was retrieved for the entity.
func (e TrackedEntity) HasPose() bool {
	return e.PoseDocument != ""
}

// Registry owns the canonical set of tracked entities. Refresh is the only
// writer and must be called from the tick context; every other method is
// safe from any goroutine.
type Registry struct {
	provider SnapshotProvider
	backend  PoseBackend
	events   bus.EventBus
	logger   log.Log

	mu       sync.RWMutex
	entities map[uint64]TrackedEntity
}

func New(provider SnapshotProvider, backend PoseBackend, events bus.EventBus, logger log.Log) *Registry {
	return &Registry{
		provider: provider,
		backend:  backend,
		events:   events,
		logger:   logger.With(log.String("component", "registry")),
		entities: make(map[uint64]TrackedEntity),
	}
}

// Refresh reconciles the registry with the current world snapshot.
func (r *Registry) Refresh() {
	observations := r.provider.Snapshot()
	available := r.backend.Available()

	r.mu.RLock()
	previous := r.entities
	r.mu.RUnlock()

	next := make(map[uint64]TrackedEntity, len(observations))
	var added, changed []EntityEvent

	for _, obs := range observations {
		if _, dup := next[obs.ID]; dup {
			r.logger.Warn("Duplicate entity in snapshot", log.EntityID(obs.ID))
			continue
		}

		var doc string
		if available {
			pose, ok := r.backend.GetPose(obs.ID)
			if !ok || pose == "" {
				// not posable
				continue
			}
			doc = pose
		}

		entity := TrackedEntity{
			ID:           obs.ID,
			Name:         obs.Name,
			ModelID:      obs.ModelID,
			LastSeen:     obs.ObservedAt,
			PoseDocument: doc,
			Position:     obs.Position,
			Rotation:     obs.Rotation,
			Scale:        obs.Scale,
		}
		if doc != "" {
			entity.PoseHash = xxhash.Sum64String(doc)
		}

		prev, seen := previous[obs.ID]
		switch {
		case !seen:
			added = append(added, EntityEvent{ID: obs.ID, Name: obs.Name})
		default:
			if entity.LastSeen.Before(prev.LastSeen) {
				entity.LastSeen = prev.LastSeen
			}
			if prev.PoseHash != entity.PoseHash {
				changed = append(changed, EntityEvent{ID: obs.ID, Name: obs.Name})
			}
		}

		next[obs.ID] = entity.clone()
	}

	var removed []EntityEvent
	for id, prev := range previous {
		if _, ok := next[id]; !ok {
			removed = append(removed, EntityEvent{ID: id, Name: prev.Name})
		}
	}

	r.mu.Lock()
	r.entities = next
	r.mu.Unlock()

	r.publish(EventEntityRemoved, removed)
	r.publish(EventEntityAdded, added)
	r.publish(EventEntityPoseChanged, changed)
}

func (r *Registry) publish(eventType string, events []EntityEvent) {
	if r.events == nil {
		return
	}
	for _, ev := range events {
		if err := r.events.Publish(bus.NewEvent(eventType, eventSource, ev)); err != nil {
			r.logger.Error("Lifecycle handler failed",
				log.String("event", eventType),
				log.EntityID(ev.ID),
				log.Error(err))
		}
	}
}

// List returns a copy of every tracked entity in no particular order.
func (r *Registry) List() []TrackedEntity {
	r.mu.RLock()
	out := make([]TrackedEntity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e.clone())
	}
	r.mu.RUnlock()
	return out
}

func (r *Registry) Get(id uint64) (TrackedEntity, error) {
	r.mu.RLock()
	e, ok := r.entities[id]
	r.mu.RUnlock()
	if !ok {
		return TrackedEntity{}, ErrNotFound
	}
	return e.clone(), nil
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}
