package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chorus/groupware/middleware"
	"chorus/groupware/models"
	"chorus/groupware/services"
	"chorus/groupware/utils"
)

type SearchHandler struct {
	provider     *services.CommentsProvider
	defaultLimit int
	logger       *utils.Logger
}

func NewSearchHandler(provider *services.CommentsProvider, defaultLimit int, logger *utils.Logger) *SearchHandler {
	return &SearchHandler{
		provider:     provider,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// SearchComments handles GET /api/v1/search/comments
func (h *SearchHandler) SearchComments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultLimit)))
	if limit < 1 || limit > 100 {
		limit = h.defaultLimit
	}

	query := models.SearchQuery{
		Term:  c.Query("term"),
		Limit: limit,
		Route: c.Query("route"),
	}
	user := models.UserIdentity{ID: middleware.UserID(c)}

	result, err := h.provider.Search(c.Request.Context(), user, query)
	if err != nil {
		h.logger.Error("Comment search failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to search comments",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
