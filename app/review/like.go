package review

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/repository"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ReviewLike(c *gin.Context, d *internal.Deps) {
	toggleLike(c, d.Reviews.Like)
}

func ReviewUnlike(c *gin.Context, d *internal.Deps) {
	toggleLike(c, d.Reviews.Unlike)
}

// toggleLike answers {"success": changed}. Liking twice or unliking
// without a like is not an error, it just changes nothing.
func toggleLike(c *gin.Context, fn func(ctx context.Context, reviewID, userID uint) (bool, error)) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	reviewID, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid review ID",
			"requestID": requestID,
		})
		return
	}

	changed, err := fn(c.Request.Context(), uint(reviewID), userID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update review like", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": changed})
}
