package quiz

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/pkg/validators"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type progressBody struct {
	CurrentQuestion int            `json:"current_question" validate:"gte=0"`
	Answers         map[string]any `json:"answers"`
	Results         *model.Scores  `json:"results"`
}

// SaveProgress replaces the caller's saved quiz state
func SaveProgress(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	var data progressBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if err := validators.Struct(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	p := &model.QuizProgress{
		UserID:          userID,
		CurrentQuestion: data.CurrentQuestion,
		Answers:         datatypes.JSONMap(data.Answers),
	}

	if data.Results != nil {
		if err := data.Results.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		results := datatypes.NewJSONType(*data.Results)
		p.Results = &results
	}

	if err := d.Quiz.SaveProgress(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to save quiz progress", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetProgress returns the saved quiz state or {} when there is none
func GetProgress(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	p, err := d.Quiz.GetProgress(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load quiz progress", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if p == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, p)
}
