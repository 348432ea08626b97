package review

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/pkg/validators"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type reviewBody struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func bindReview(c *gin.Context, requestID string) (*reviewBody, bool) {
	var data reviewBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return nil, false
	}

	data.Comment = strings.TrimSpace(data.Comment)

	err := validators.RatingValidator(data.Rating)
	if err == nil {
		err = validators.CommentValidator(data.Comment)
	}

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return nil, false
	}

	return &data, true
}

func ReviewCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	data, ok := bindReview(c, requestID)
	if !ok {
		return
	}

	review, err := d.Reviews.Create(c.Request.Context(), userID, data.Rating, data.Comment)
	if err != nil {
		if errors.Is(err, repository.ErrReviewExists) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create review", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"review":  review,
	})
}

func ReviewUpdate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	data, ok := bindReview(c, requestID)
	if !ok {
		return
	}

	review, err := d.Reviews.Update(c.Request.Context(), userID, data.Rating, data.Comment)
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

		zap.L().Error("Failed to update review", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"review":  review,
	})
}

func ReviewDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	deleted, err := d.Reviews.Delete(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete review", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     repository.ErrReviewNotFound.Error(),
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
