// README: Wishlist handlers: list, add, remove for the signed-in owner.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"wander/internal/http/middleware"
	"wander/internal/modules/wishlist"
)

type WishlistService interface {
	List(ctx context.Context, owner string) ([]wishlist.Item, error)
	Add(ctx context.Context, owner, text string) (*wishlist.Item, error)
	Remove(ctx context.Context, owner, id string) error
}

type WishlistHandler struct {
	wishlist WishlistService
}

func NewWishlistHandler(svc WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlist: svc}
}

type addItemReq struct {
	Item string `json:"item"`
}

// List handles GET /api/wishlist.
func (h *WishlistHandler) List(c *gin.Context) {
	items, err := h.wishlist.List(c.Request.Context(), middleware.CallerOwner(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if items == nil {
		items = []wishlist.Item{}
	}
	writeJSON(c, http.StatusOK, gin.H{"items": items})
}

// Add handles POST /api/wishlist.
func (h *WishlistHandler) Add(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	item, err := h.wishlist.Add(c.Request.Context(), middleware.CallerOwner(c), req.Item)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, item)
}

// Remove handles DELETE /api/wishlist/:id.
func (h *WishlistHandler) Remove(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.wishlist.Remove(c.Request.Context(), middleware.CallerOwner(c), id); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
