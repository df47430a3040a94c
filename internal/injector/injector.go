//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/posebridge/internal/config"
)

// InitializeBridge assembles the bridge from cfg.
func InitializeBridge(cfg *config.Config) (*Bridge, func(), error) {
	wire.Build(configSet, hostSet, coreSet, serverSet, NewBridge)
	return nil, nil, nil
}
