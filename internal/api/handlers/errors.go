package handlers

import (
	"errors"
	"net/http"

	"github.com/haopham98/commerce/internal/domain"

	"github.com/labstack/echo/v4"
)

// respondError maps the typed business errors onto HTTP statuses. The
// engine never crashes on these; they all render as user messages.
func respondError(c echo.Context, err error) error {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":       tooLow.Error(),
			"current_bid": tooLow.CurrentBid.StringFixed(2),
		})
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrAuctionClosed),
		errors.Is(err, domain.ErrAlreadyClosed),
		errors.Is(err, domain.ErrAlreadyWatched),
		errors.Is(err, domain.ErrConcurrentUpdateExceeded):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotOwner):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// userID reads the authenticated identity set by the upstream auth
// layer. The engine itself never authenticates.
func userID(c echo.Context) (string, bool) {
	id := c.Request().Header.Get("X-User-ID")
	return id, id != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
}
