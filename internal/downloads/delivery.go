package downloads

import "github.com/labstack/echo/v4"

// Handlers is the HTTP delivery surface for the downloads feature.
type Handlers interface {
	Create() echo.HandlerFunc
	List() echo.HandlerFunc
	Status() echo.HandlerFunc
	Pause() echo.HandlerFunc
	Resume() echo.HandlerFunc
	Cancel() echo.HandlerFunc
}
