package api

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/phylogo/beagle/pkg/beagle"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, msg, int(beagle.GeneralError))
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, msg, int(beagle.UninitializedInstanceError))
}

// writeEngineError maps an engine error to an HTTP status and surfaces the
// classic numeric return code alongside the message.
func writeEngineError(c *echo.Context, err error) error {
	code := beagle.CodeOf(err)
	status := http.StatusBadRequest
	switch code {
	case beagle.UninitializedInstanceError:
		status = http.StatusNotFound
	case beagle.OutOfMemoryError:
		status = http.StatusInsufficientStorage
	case beagle.UnidentifiedExceptionError:
		status = http.StatusInternalServerError
	}
	return writeError(c, status, err.Error(), int(code))
}

func writeError(c *echo.Context, status int, msg string, code int) error {
	var resp ErrorResponse
	resp.Error.Message = msg
	resp.Error.Code = code
	return c.JSON(status, resp)
}
