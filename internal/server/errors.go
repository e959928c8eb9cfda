package server

import (
	"net/http"

	"github.com/aman-zulfiqar/solana-pool-swap/internal/swapengine"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, etc.)
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusForKind maps an engine failure to an HTTP status.
func statusForKind(kind swapengine.ErrorKind) int {
	switch kind {
	case swapengine.KindInvalidAmount, swapengine.KindInvalidSeed:
		return http.StatusBadRequest
	case swapengine.KindInvalidMint, swapengine.KindInvalidOwner, swapengine.KindInvalidAccount,
		swapengine.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case swapengine.KindPoolExists:
		return http.StatusConflict
	case swapengine.KindPoolNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// engineErr writes an engine failure. Internal errors never leak their text
// outside dev mode.
func (h *Handlers) engineErr(c echo.Context, err error) error {
	kind := swapengine.Kind(err)
	code := statusForKind(kind)

	resp := ErrorResponse{Error: err.Error(), Code: code, Kind: string(kind)}
	if kind == swapengine.KindInternal {
		h.Logger.WithError(err).WithField("path", c.Path()).Error("engine failure")
		resp.Error = "internal server error"
		if h.DevMode {
			resp.Details = map[string]any{"err": err.Error()}
		}
	}
	return c.JSON(code, resp)
}
