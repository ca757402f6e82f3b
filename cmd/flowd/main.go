// Command flowd exposes the workflow execution engine over HTTP: register
// a workflow, run it, cancel an in-flight execution. Concrete
// node-kind behaviour (scripting, diagnosis heuristics, notifications,
// data ingestion) is external to the engine core and registered by the
// deployment embedding this binary — see container.New's nodeRegistrars
// hook — the engine only ships the Reference kind out of the box.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/diagflow/cmd/flowd/container"
	"github.com/lyzr/diagflow/cmd/flowd/routes"
	"github.com/lyzr/diagflow/common/bootstrap"
	"github.com/lyzr/diagflow/common/server"
)

func main() {
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "flowd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap flowd: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	c, err := container.New(ctx, components, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build container: %v\n", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.GET("/health", func(ec echo.Context) error {
		if err := components.Health(ec.Request().Context()); err != nil {
			return ec.JSON(503, map[string]string{"status": "unhealthy", "error": err.Error()})
		}
		return ec.JSON(200, map[string]string{"status": "healthy", "service": "flowd"})
	})

	routes.Register(e, c)

	srv := server.New("flowd", components.Config.Service.Port, e, components.Logger).WithDrainer(c.Engine)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
