package bones

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/zeusync/posebridge/internal/core/events/bus"
	"github.com/zeusync/posebridge/internal/core/observability/log"
	"github.com/zeusync/posebridge/internal/core/registry"
	"github.com/zeusync/posebridge/internal/core/transform"
)

// Config tunes the engine.
type Config struct {
	// EaseRate is the fraction of the remaining distance closed per tick.
	EaseRate float32 `json:"easeRate" yaml:"easeRate" env:"POSEBRIDGE_BONES_EASE_RATE"`
}

func DefaultConfig() Config {
	return Config{EaseRate: 0.35}
}

// entityState is the tick-owned half of an entity's bone state.
type entityState struct {
	current transform.BoneMap
	cache   *IndexCache
}

// Engine eases externally supplied bone targets into entity rigs.
//
// Targets are written by any goroutine through SetTargets and Clear. Current
// state and index caches belong to whichever goroutine calls CommitTick.
type Engine struct {
	skeleton SkeletonAccessor
	rate     float32
	logger   log.Log

	mu      sync.Mutex
	targets map[uint64]transform.BoneMap
	cleared map[uint64]struct{}

	states map[uint64]*entityState
}

func NewEngine(skeleton SkeletonAccessor, config Config, logger log.Log) (*Engine, error) {
	if !(config.EaseRate > 0 && config.EaseRate <= 1) {
		return nil, errors.Wrapf(ErrInvalidRate, "got %v", config.EaseRate)
	}
	return &Engine{
		skeleton: skeleton,
		rate:     config.EaseRate,
		logger:   logger.With(log.String("component", "bones")),
		targets:  make(map[uint64]transform.BoneMap),
		cleared:  make(map[uint64]struct{}),
		states:   make(map[uint64]*entityState),
	}, nil
}

// Rate returns the configured ease rate.
func (e *Engine) Rate() float32 {
	return e.rate
}

// SetTargets replaces the entity's whole target map. Bones absent from bones
// stop easing; their last committed value keeps being written.
func (e *Engine) SetTargets(id uint64, bones transform.BoneMap) error {
	if len(bones) == 0 {
		return ErrEmptyTargets
	}
	next := bones.Clone()

	e.mu.Lock()
	e.targets[id] = next
	e.mu.Unlock()
	return nil
}

// Clear forgets all bone state for the entity. Current state and the index
// cache are released at the start of the next CommitTick.
func (e *Engine) Clear(id uint64) {
	e.mu.Lock()
	delete(e.targets, id)
	e.cleared[id] = struct{}{}
	e.mu.Unlock()
}

// ClearOnRemoval subscribes the engine to registry removals.
func (e *Engine) ClearOnRemoval(events bus.EventBus) (bus.Subscription, error) {
	return events.Subscribe(registry.EventEntityRemoved, func(ev bus.Event) error {
		payload, ok := ev.Data().(registry.EntityEvent)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", ev.Type(), ev.Data())
		}
		e.Clear(payload.ID)
		return nil
	})
}

// Tracked reports how many entities currently hold a target map.
func (e *Engine) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.targets)
}

// Current returns a copy of the committed bone map. Tick context only.
func (e *Engine) Current(id uint64) (transform.BoneMap, bool) {
	st, ok := e.states[id]
	if !ok {
		return nil, false
	}
	return st.current.Clone(), true
}

// CommitTick advances every entity one ease step and writes the result into
// its rig. It must be called exactly once per tick from the tick context.
func (e *Engine) CommitTick() {
	e.mu.Lock()
	targets := make(map[uint64]transform.BoneMap, len(e.targets))
	for id, m := range e.targets {
		// target maps are replaced wholesale, never mutated in place
		targets[id] = m
	}
	var cleared map[uint64]struct{}
	if len(e.cleared) > 0 {
		cleared = e.cleared
		e.cleared = make(map[uint64]struct{})
	}
	e.mu.Unlock()

	// a cleared id that was retargeted since starts again from a fresh seed
	for id := range cleared {
		delete(e.states, id)
	}

	for id, target := range targets {
		if err := e.commitEntity(id, target); err != nil {
			e.logger.Warn("Bone commit failed", log.EntityID(id), log.Error(err))
		}
	}
}

func (e *Engine) commitEntity(id uint64, target transform.BoneMap) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during bone commit: %v", r)
		}
	}()

	st, ok := e.states[id]
	if !ok {
		st = &entityState{current: make(transform.BoneMap, len(target)), cache: newIndexCache()}
		e.states[id] = st
	}

	for name, t := range target {
		cur, seen := st.current[name]
		if !seen {
			st.current[name] = seed(t)
			continue
		}
		st.current[name] = transform.Ease(cur, t, e.rate)
	}

	parts, err := e.skeleton.PartCount(id)
	if err != nil {
		return errors.Wrap(err, "skeleton unavailable")
	}

	var failed int
	var lastErr error
	for name, t := range st.current {
		ref, found := st.cache.Resolve(e.skeleton, id, parts, name)
		if !found {
			if st.cache.markMissed(name) {
				e.logger.Debug("Bone not on rig, skipping", log.EntityID(id), log.String("bone", name))
			}
			continue
		}
		if err := e.skeleton.SetBoneModelSpace(id, ref.part, ref.index, t); err != nil {
			failed++
			lastErr = errors.Wrapf(err, "write bone %q", name)
		}
	}
	if failed > 0 {
		return errors.Wrapf(lastErr, "%d bone writes failed", failed)
	}
	return nil
}

// seed copies a first-seen target exactly, except that the rotation is
// normalised so the rig never receives a degenerate quaternion.
func seed(t transform.Transform) transform.Transform {
	out := t.Clone()
	if out.Rotation != nil {
		r := out.Rotation.Normalize()
		out.Rotation = &r
	}
	return out
}
