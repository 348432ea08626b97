package review

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/pkg/validators"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type listQuery struct {
	Sort string `form:"sort" json:"sort" validate:"omitempty,oneof=newest oldest highest lowest popular"`
}

// ReviewList returns the board: every review, the stats and the caller's
// own review
func ReviewList(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid query",
			"requestID": requestID,
		})
		return
	}

	if err := validators.Struct(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if q.Sort == "" {
		q.Sort = repository.SortOptions[0]
	}

	ctx := c.Request.Context()

	reviews, err := d.Reviews.List(ctx, q.Sort, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list reviews", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	stats, err := d.Reviews.Stats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load review stats", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	own, err := d.Reviews.ByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load user review", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"sort":           q.Sort,
		"reviews":        reviews,
		"average_rating": stats.AverageRating,
		"reviews_count":  stats.ReviewsCount,
		"user_review":    own,
	})
}

// ReviewStats is public and cached by the router
func ReviewStats(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	stats, err := d.Reviews.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load review stats", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, stats)
}
