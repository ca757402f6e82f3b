// Package container wires the engine and its ambient dependencies into a
// single struct handed to routes, grounded on
// cmd/orchestrator/container.Container's singleton-construction shape.
package container

import (
	"context"
	"fmt"

	"github.com/lyzr/diagflow/common/bootstrap"
	"github.com/lyzr/diagflow/common/ratelimit"
	"github.com/lyzr/diagflow/engine"
	"github.com/lyzr/diagflow/engine/noderun"
	"github.com/lyzr/diagflow/engine/registry"
)

// Container holds every service flowd's handlers depend on, constructed
// once at startup.
type Container struct {
	Components  *bootstrap.Components
	Registry    *registry.Registry
	Nodes       *noderun.Registry
	Engine      *engine.Engine
	RateLimiter *ratelimit.RateLimiter
}

// New builds the service container. nodeRegistrars lets main register
// concrete node-kind implementations (plugin, script, diagnosis, ...)
// before the engine starts accepting executions. When components carries
// a database or cache backend, the registry is attached to it for
// snapshot durability and cross-instance change notification, and
// repopulated from any existing snapshots before returning.
func New(ctx context.Context, components *bootstrap.Components, nodeRegistrars func(*noderun.Registry)) (*Container, error) {
	reg := registry.New()
	if components.DB != nil {
		reg = reg.WithSnapshotStore(components.DB)
	}
	if components.Redis != nil {
		reg = reg.WithChangeNotifier(components.Redis)
	}
	if err := reg.LoadFromStore(ctx); err != nil {
		return nil, fmt.Errorf("container: load registry snapshots: %w", err)
	}

	nodes := noderun.NewRegistry()
	if nodeRegistrars != nil {
		nodeRegistrars(nodes)
	}

	eng := engine.New(reg, nodes, engine.Config{
		MaxConcurrency: components.Config.Execution.MaxConcurrency,
		Telemetry:      components.Telemetry,
	})

	c := &Container{
		Components: components,
		Registry:   reg,
		Nodes:      nodes,
		Engine:     eng,
	}

	if components.Redis != nil {
		c.RateLimiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), components.Logger)
	}

	return c, nil
}
