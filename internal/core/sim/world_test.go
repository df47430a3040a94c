package sim

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/posebridge/internal/core/bones"
	"github.com/zeusync/posebridge/internal/core/events/bus"
	"github.com/zeusync/posebridge/internal/core/observability/log"
	"github.com/zeusync/posebridge/internal/core/registry"
	"github.com/zeusync/posebridge/internal/core/tick"
	"github.com/zeusync/posebridge/internal/core/transform"
)

func TestSpawnAllocatesIDsAndSnapshots(t *testing.T) {
	w := NewWorld()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.SetClock(func() time.Time { return fixed })

	a := w.Spawn(CharacterSpec{Name: "Alphinaud", Rig: HumanRig()})
	b := w.Spawn(CharacterSpec{ID: 40, Name: "Estinien"})
	c := w.Spawn(CharacterSpec{Name: "Tataru"})

	assert.Equal(t, uint64(1), a)
	assert.Equal(t, uint64(40), b)
	assert.Equal(t, uint64(41), c)

	snap := w.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "Alphinaud", snap[0].Name)
	assert.Equal(t, fixed, snap[0].ObservedAt)
	assert.Equal(t, transform.Identity(), *snap[0].Rotation)

	w.Despawn(b)
	assert.Len(t, w.Snapshot(), 2)
}

func TestPoseRequiresSkeletonAndAvailability(t *testing.T) {
	w := NewWorld()
	posable := w.Spawn(CharacterSpec{Rig: [][]string{{"j_kao"}}})
	prop := w.Spawn(CharacterSpec{})

	doc, ok := w.GetPose(posable)
	require.True(t, ok)
	assert.JSONEq(t, `{"bones":{"j_kao":{}}}`, doc)

	_, ok = w.GetPose(prop)
	assert.False(t, ok)

	w.SetAvailable(false)
	_, ok = w.GetPose(posable)
	assert.False(t, ok)
	assert.False(t, w.SetPose(posable, doc))
}

func TestSetPoseAppliesKnownBones(t *testing.T) {
	w := NewWorld()
	id := w.Spawn(CharacterSpec{Rig: [][]string{{"j_kubi", "j_kao"}}})

	doc := transform.PoseFromBones(transform.BoneMap{
		"j_kao":  {Position: transform.Vec3Ptr(0, 1, 0)},
		"j_tail": {Position: transform.Vec3Ptr(9, 9, 9)},
	})
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	require.True(t, w.SetPose(id, string(raw)))

	b, ok := w.Bone(id, "j_kao")
	require.True(t, ok)
	assert.Equal(t, transform.Vec3{Y: 1}, *b.Position)
	assert.False(t, w.SetPose(id, "not json"))
}

func TestTransformRoundTripAndAdditive(t *testing.T) {
	w := NewWorld()
	id := w.Spawn(CharacterSpec{})

	in := transform.Transform{
		Position: transform.Vec3Ptr(1, 2, 3),
		Rotation: transform.QuatPtr(transform.Identity()),
		Scale:    transform.Vec3Ptr(1, 1, 1),
	}
	require.True(t, w.SetTransform(id, in, false))
	out, ok := w.GetTransform(id)
	require.True(t, ok)
	assert.Equal(t, in, out)

	require.True(t, w.SetTransform(id, transform.Transform{
		Position: transform.Vec3Ptr(1, 1, 1),
		Scale:    transform.Vec3Ptr(2, 2, 2),
	}, true))
	out, _ = w.GetTransform(id)
	assert.Equal(t, transform.Vec3{X: 2, Y: 3, Z: 4}, *out.Position)
	assert.Equal(t, transform.Vec3{X: 2, Y: 2, Z: 2}, *out.Scale)

	assert.False(t, w.SetTransform(999, in, false))
}

func TestSkeletonAccess(t *testing.T) {
	w := NewWorld()
	id := w.Spawn(CharacterSpec{Rig: [][]string{{"a"}, {"b", "c"}}})
	bare := w.Spawn(CharacterSpec{})

	n, err := w.PartCount(id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = w.PartCount(bare)
	assert.ErrorIs(t, err, ErrNoSkeleton)
	_, err = w.PartCount(404)
	assert.ErrorIs(t, err, ErrUnknownCharacter)

	idx, ok := w.ResolveBoneIndex(id, 1, "c")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = w.ResolveBoneIndex(id, 0, "c")
	assert.False(t, ok)

	require.NoError(t, w.SetBoneModelSpace(id, 1, 1, transform.Transform{Scale: transform.Vec3Ptr(2, 2, 2)}))
	assert.ErrorIs(t, w.SetBoneModelSpace(id, 3, 0, transform.Transform{}), ErrBoneOutOfRange)
	b, _ := w.Bone(id, "c")
	assert.Equal(t, transform.Vec3{X: 2, Y: 2, Z: 2}, *b.Scale)
}

func TestTickPipelineEasesBonesIntoWorld(t *testing.T) {
	w := NewWorld()
	id := w.Spawn(CharacterSpec{Name: "Lyse", Rig: HumanRig()})

	events := bus.New()
	logger := log.NewNop()
	reg := registry.New(w, w, events, logger)
	engine, err := bones.NewEngine(w, bones.Config{EaseRate: 0.5}, logger)
	require.NoError(t, err)
	_, err = engine.ClearOnRemoval(events)
	require.NoError(t, err)
	loop := tick.NewLoop(reg, engine, tick.DefaultConfig(), logger)

	loop.Tick()
	require.Equal(t, 1, reg.Count())

	require.NoError(t, engine.SetTargets(id, transform.BoneMap{"j_kao": {Position: transform.Vec3Ptr(0, 0, 0)}}))
	loop.Tick()
	require.NoError(t, engine.SetTargets(id, transform.BoneMap{"j_kao": {Position: transform.Vec3Ptr(4, 0, 0)}}))
	loop.Tick()
	loop.Tick()

	b, ok := w.Bone(id, "j_kao")
	require.True(t, ok)
	assert.InDelta(t, 3, b.Position.X, 1e-5)

	w.Despawn(id)
	loop.Tick()
	loop.Tick()
	assert.Equal(t, 0, reg.Count())
	assert.Equal(t, 0, engine.Tracked())
	_, ok = engine.Current(id)
	assert.False(t, ok)
}
