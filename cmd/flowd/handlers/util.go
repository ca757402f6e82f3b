package handlers

import (
	"io"

	"github.com/labstack/echo/v4"
)

func readBody(c echo.Context) ([]byte, error) {
	defer c.Request().Body.Close()
	return io.ReadAll(c.Request().Body)
}
