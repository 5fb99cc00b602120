package handlers

import (
	"net/http"

	"github.com/haopham98/commerce/internal/services"
	"github.com/haopham98/commerce/pkg/logger"

	"github.com/labstack/echo/v4"
)

type ListingHandler struct {
	listingService *services.ListingService
	log            logger.Logger
}

func NewListingHandler(listingService *services.ListingService, log logger.Logger) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		log:            log,
	}
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	owner, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	var input services.CreateListingInput
	if err := c.Bind(&input); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	listing, err := h.listingService.CreateListing(c.Request().Context(), owner, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, listing)
}

func (h *ListingHandler) ListActive(c echo.Context) error {
	listings, err := h.listingService.ListActive(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"listings": listings})
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	detail, err := h.listingService.GetDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

func (h *ListingHandler) Watch(c echo.Context) error {
	user, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.listingService.Watch(c.Request().Context(), user, c.Param("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"message": "listing added to watchlist"})
}

func (h *ListingHandler) Unwatch(c echo.Context) error {
	user, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.listingService.Unwatch(c.Request().Context(), user, c.Param("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "listing removed from watchlist"})
}

func (h *ListingHandler) Watchlist(c echo.Context) error {
	user, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	listings, err := h.listingService.Watchlist(c.Request().Context(), user)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"watchlist": listings})
}

type addCommentRequest struct {
	Content string `json:"content"`
}

func (h *ListingHandler) AddComment(c echo.Context) error {
	user, ok := userID(c)
	if !ok {
		return unauthorized(c)
	}

	var req addCommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	comment, err := h.listingService.AddComment(c.Request().Context(), user, c.Param("id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, comment)
}
