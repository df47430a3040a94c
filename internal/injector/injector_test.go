package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/posebridge/internal/config"
	"github.com/zeusync/posebridge/internal/core/transform"
)

func TestInitializeBridge(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Demo.Characters = []string{"Urianger", "Y'shtola", "Thancred"}

	bridge, cleanup, err := InitializeBridge(&cfg)
	require.NoError(t, err)
	defer cleanup()

	bridge.Loop.Tick()
	assert.Equal(t, 3, bridge.Registry.Count())

	list := bridge.Registry.List()
	require.Len(t, list, 3)

	require.NoError(t, bridge.Engine.SetTargets(list[0].ID, transform.BoneMap{
		"j_kao": {Position: transform.Vec3Ptr(0, 1, 0)},
	}))
	bridge.Loop.Tick()
	b, ok := bridge.World.Bone(list[0].ID, "j_kao")
	require.True(t, ok)
	assert.Equal(t, transform.Vec3{Y: 1}, *b.Position)

	// removal from the host clears engine state through the event bus
	bridge.World.Despawn(list[0].ID)
	bridge.Loop.Tick()
	assert.Equal(t, 0, bridge.Engine.Tracked())
	assert.False(t, bridge.Server.Running())
}

func TestInitializeBridgeRejectsBadEaseRate(t *testing.T) {
	cfg := config.Default()
	cfg.Bones.EaseRate = 0

	_, _, err := InitializeBridge(&cfg)
	assert.Error(t, err)
}
