package handlers

import (
	"net/http"

	"github.com/haopham98/commerce/internal/services"
	"github.com/haopham98/commerce/pkg/logger"

	"github.com/labstack/echo/v4"
)

type BidHandler struct {
	engine *services.BiddingEngine
	log    logger.Logger
}

func NewBidHandler(engine *services.BiddingEngine, log logger.Logger) *BidHandler {
	return &BidHandler{
		engine: engine,
		log:    log,
	}
}

type placeBidRequest struct {
	Amount string `json:"amount"`
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	bidder, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	var req placeBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.engine.PlaceBid(c.Request().Context(), c.Param("id"), bidder, req.Amount)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "bid placed successfully",
		"listing": result.Listing,
		"bid":     result.Bid,
	})
}

func (h *BidHandler) CloseListing(c echo.Context) error {
	requester, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	result, err := h.engine.Close(c.Request().Context(), c.Param("id"), requester)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "listing closed successfully",
		"listing": result.Listing,
		"winner":  result.Winner,
	})
}

func (h *BidHandler) GetWinner(c echo.Context) error {
	winner, err := h.engine.GetWinner(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	if winner == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"winner":  nil,
			"message": "no bids were placed on this listing",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"winner": winner})
}
