package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RootMessage is the liveness text served on "/".
const RootMessage = "Portfolio backend is running"

func Root(c echo.Context) error {
	return c.String(http.StatusOK, RootMessage)
}
