package chat

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/pkg/validators"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type sendBody struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// GetMessages returns the active thread's messages, empty when there is
// no active thread
func GetMessages(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	active, err := d.Chats.GetActive(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load active chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if active == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":   "success",
			"messages": []model.ChatMessage{},
		})
		return
	}

	msgs, err := d.Chats.Messages(c.Request.Context(), active.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load messages", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"messages":    msgs,
		"active_chat": active,
	})
}

// SendMessage answers a message. The bot always produces a reply, model
// trouble only changes where it comes from.
func SendMessage(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	var data sendBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	data.Message = strings.TrimSpace(data.Message)
	if err := validators.Struct(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	reply := d.Bot.Respond(c.Request.Context(), userID, data.Message)

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"response": reply,
	})
}
