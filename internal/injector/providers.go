package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/posebridge/internal/config"
	"github.com/zeusync/posebridge/internal/core/bones"
	"github.com/zeusync/posebridge/internal/core/events/bus"
	"github.com/zeusync/posebridge/internal/core/observability/log"
	"github.com/zeusync/posebridge/internal/core/registry"
	"github.com/zeusync/posebridge/internal/core/sim"
	"github.com/zeusync/posebridge/internal/core/tick"
	"github.com/zeusync/posebridge/internal/server"
)

// Bridge is the assembled process: the tick context and the network surface
// around one host.
type Bridge struct {
	Logger   *log.Logger
	World    *sim.World
	Registry *registry.Registry
	Engine   *bones.Engine
	Loop     *tick.Loop
	Server   *server.Server
}

func NewBridge(logger *log.Logger, world *sim.World, reg *registry.Registry, engine *bones.Engine, loop *tick.Loop, srv *server.Server) *Bridge {
	return &Bridge{Logger: logger, World: world, Registry: reg, Engine: engine, Loop: loop, Server: srv}
}

func ProvideLogger(cfg config.LogConfig) *log.Logger {
	return log.New(log.ParseLevel(cfg.Level))
}

// ProvideWorld builds the in-memory host and spawns the demo characters on
// the human rig.
func ProvideWorld(cfg config.DemoConfig, logger log.Log) *sim.World {
	world := sim.NewWorld()
	for i, name := range cfg.Characters {
		id := world.Spawn(sim.CharacterSpec{
			Name:     name,
			ModelID:  uint32(100 + i),
			Rig:      sim.HumanRig(),
			Position: sim.SpawnPoint(i),
		})
		logger.Debug("Demo character spawned", log.EntityID(id), log.String("name", name))
	}
	return world
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

// ProvideEngine wires the engine to registry removals. The cleanup cancels
// the subscription.
func ProvideEngine(skeleton bones.SkeletonAccessor, cfg bones.Config, events bus.EventBus, logger log.Log) (*bones.Engine, func(), error) {
	engine, err := bones.NewEngine(skeleton, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sub, err := engine.ClearOnRemoval(events)
	if err != nil {
		return nil, nil, err
	}
	return engine, func() { _ = sub.Cancel() }, nil
}

var configSet = wire.NewSet(
	wire.FieldsOf(new(*config.Config), "Server", "Tick", "Bones", "Log", "Demo"),
)

var hostSet = wire.NewSet(
	ProvideWorld,
	wire.Bind(new(registry.SnapshotProvider), new(*sim.World)),
	wire.Bind(new(registry.PoseBackend), new(*sim.World)),
	wire.Bind(new(bones.SkeletonAccessor), new(*sim.World)),
)

var coreSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideEventBus,
	registry.New,
	ProvideEngine,
	tick.NewLoop,
	wire.Bind(new(tick.Refresher), new(*registry.Registry)),
	wire.Bind(new(tick.Committer), new(*bones.Engine)),
	wire.Bind(new(tick.Executor), new(*tick.Loop)),
)

var serverSet = wire.NewSet(
	server.NewServer,
	wire.Bind(new(server.EntitySource), new(*registry.Registry)),
	wire.Bind(new(server.BoneTargets), new(*bones.Engine)),
)
