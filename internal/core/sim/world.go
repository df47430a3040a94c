package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/zeusync/posebridge/internal/core/bones"
	"github.com/zeusync/posebridge/internal/core/registry"
	"github.com/zeusync/posebridge/internal/core/transform"
)

var (
	_ registry.SnapshotProvider = (*World)(nil)
	_ registry.PoseBackend      = (*World)(nil)
	_ bones.SkeletonAccessor    = (*World)(nil)
)

// CharacterSpec describes a character to spawn.
type CharacterSpec struct {
	ID       uint64
	Name     string
	ModelID  uint32
	Rig      [][]string
	Position transform.Vec3
}

type boneSlot struct {
	name string
	t    transform.Transform
}

type character struct {
	id       uint64
	name     string
	modelID  uint32
	position transform.Vec3
	rotation transform.Quat
	scale    transform.Vec3
	parts    [][]boneSlot
}

func (c *character) find(name string) *boneSlot {
	for p := range c.parts {
		for i := range c.parts[p] {
			if c.parts[p][i].name == name {
				return &c.parts[p][i]
			}
		}
	}
	return nil
}

// World is an in-memory host. It serves as snapshot provider, pose backend
// and skeleton accessor, storing everything it is given faithfully.
type World struct {
	mu         sync.RWMutex
	characters map[uint64]*character
	order      []uint64
	nextID     uint64

	available atomic.Bool
	now       func() time.Time
}

func NewWorld() *World {
	w := &World{
		characters: make(map[uint64]*character),
		nextID:     1,
		now:        time.Now,
	}
	w.available.Store(true)
	return w
}

// SetClock overrides the observation clock.
func (w *World) SetClock(now func() time.Time) {
	w.mu.Lock()
	w.now = now
	w.mu.Unlock()
}

// SetAvailable toggles the pose backend on or off.
func (w *World) SetAvailable(available bool) {
	w.available.Store(available)
}

// Spawn adds a character and returns its id. A zero spec ID allocates one.
func (w *World) Spawn(spec CharacterSpec) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := spec.ID
	if id == 0 {
		id = w.nextID
	}
	if id >= w.nextID {
		w.nextID = id + 1
	}

	c := &character{
		id:       id,
		name:     spec.Name,
		modelID:  spec.ModelID,
		position: spec.Position,
		rotation: transform.Identity(),
		scale:    transform.Vec3{X: 1, Y: 1, Z: 1},
		parts:    make([][]boneSlot, len(spec.Rig)),
	}
	for p, names := range spec.Rig {
		c.parts[p] = make([]boneSlot, len(names))
		for i, n := range names {
			c.parts[p][i] = boneSlot{name: n}
		}
	}

	if _, exists := w.characters[id]; !exists {
		w.order = append(w.order, id)
	}
	w.characters[id] = c
	return id
}

func (w *World) Despawn(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.characters[id]; !ok {
		return
	}
	delete(w.characters, id)
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Bone returns the last model-space transform written to the named bone.
func (w *World) Bone(id uint64, name string) (transform.Transform, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.characters[id]
	if !ok {
		return transform.Transform{}, false
	}
	slot := c.find(name)
	if slot == nil {
		return transform.Transform{}, false
	}
	return slot.t.Clone(), true
}

func (w *World) Snapshot() []registry.Observation {
	w.mu.RLock()
	defer w.mu.RUnlock()

	now := w.now()
	out := make([]registry.Observation, 0, len(w.order))
	for _, id := range w.order {
		c := w.characters[id]
		pos, rot, scale := c.position, c.rotation, c.scale
		out = append(out, registry.Observation{
			ID:         c.id,
			Name:       c.name,
			ModelID:    c.modelID,
			ObservedAt: now,
			Position:   &pos,
			Rotation:   &rot,
			Scale:      &scale,
		})
	}
	return out
}

func (w *World) Available() bool {
	return w.available.Load()
}

// GetPose renders the character's rig as a pose document. Characters without
// a skeleton have no pose.
func (w *World) GetPose(id uint64) (string, bool) {
	if !w.Available() {
		return "", false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	c, ok := w.characters[id]
	if !ok || len(c.parts) == 0 {
		return "", false
	}
	doc := transform.PoseDocument{Bones: make(transform.BoneMap)}
	for _, part := range c.parts {
		for _, slot := range part {
			doc.Bones[slot.name] = slot.t.Clone()
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// SetPose applies every bone of doc found on the rig. Unknown bones are ignored.
func (w *World) SetPose(id uint64, doc string) bool {
	if !w.Available() {
		return false
	}
	var pose transform.PoseDocument
	if err := json.Unmarshal([]byte(doc), &pose); err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.characters[id]
	if !ok {
		return false
	}
	for name, t := range pose.Bones {
		if slot := c.find(name); slot != nil {
			slot.t = merge(slot.t, t)
		}
	}
	return true
}

func (w *World) GetTransform(id uint64) (transform.Transform, bool) {
	if !w.Available() {
		return transform.Transform{}, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.characters[id]
	if !ok {
		return transform.Transform{}, false
	}
	pos, rot, scale := c.position, c.rotation, c.scale
	return transform.Transform{Position: &pos, Rotation: &rot, Scale: &scale}, true
}

// SetTransform writes the channels present in t. Additive writes add the
// position, compose the rotation on top of the current one and multiply the scale.
func (w *World) SetTransform(id uint64, t transform.Transform, additive bool) bool {
	if !w.Available() {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.characters[id]
	if !ok {
		return false
	}

	if t.Position != nil {
		if additive {
			c.position = c.position.Add(*t.Position)
		} else {
			c.position = *t.Position
		}
	}
	if t.Rotation != nil {
		if additive {
			c.rotation = t.Rotation.Mul(c.rotation).Normalize()
		} else {
			c.rotation = *t.Rotation
		}
	}
	if t.Scale != nil {
		if additive {
			c.scale = c.scale.MulComponents(*t.Scale)
		} else {
			c.scale = *t.Scale
		}
	}
	return true
}

func (w *World) PartCount(id uint64) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.characters[id]
	if !ok {
		return 0, ErrUnknownCharacter
	}
	if len(c.parts) == 0 {
		return 0, ErrNoSkeleton
	}
	return len(c.parts), nil
}

func (w *World) ResolveBoneIndex(id uint64, part int, name string) (int, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.characters[id]
	if !ok || part < 0 || part >= len(c.parts) {
		return 0, false
	}
	for i, slot := range c.parts[part] {
		if slot.name == name {
			return i, true
		}
	}
	return 0, false
}

func (w *World) SetBoneModelSpace(id uint64, part, index int, t transform.Transform) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.characters[id]
	if !ok {
		return ErrUnknownCharacter
	}
	if part < 0 || part >= len(c.parts) || index < 0 || index >= len(c.parts[part]) {
		return ErrBoneOutOfRange
	}
	slot := &c.parts[part][index]
	slot.t = merge(slot.t, t)
	return nil
}

// merge overwrites the channels of dst that src carries.
func merge(dst, src transform.Transform) transform.Transform {
	out := dst.Clone()
	src = src.Clone()
	if src.Position != nil {
		out.Position = src.Position
	}
	if src.Rotation != nil {
		out.Rotation = src.Rotation
	}
	if src.Scale != nil {
		out.Scale = src.Scale
	}
	return out
}
