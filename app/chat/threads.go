package chat

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/pkg/validators"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createBody struct {
	Title string `json:"title" validate:"max=200"`
}

// ListChats returns the caller's threads and the active one
func ListChats(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	chats, err := d.Chats.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list chats", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	active, err := d.Chats.GetActive(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load active chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"chats":       chats,
		"active_chat": active,
	})
}

func CreateChat(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	var data createBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid request body",
				"requestID": requestID,
			})
			return
		}
	}

	if err := validators.Struct(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	chat, err := d.Chats.Create(c.Request.Context(), userID, data.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"chat_id": chat.ID,
	})
}

func SetActiveChat(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	chatID, ok := chatIDParam(c, requestID)
	if !ok {
		return
	}

	found, err := d.Chats.SetActive(c.Request.Context(), userID, chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to set active chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Chat not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func DeleteChat(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(uint)

	chatID, ok := chatIDParam(c, requestID)
	if !ok {
		return
	}

	found, err := d.Chats.Delete(c.Request.Context(), userID, chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete chat", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Chat not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func chatIDParam(c *gin.Context, requestID string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("chat_id"), 10, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid chat ID",
			"requestID": requestID,
		})
		return 0, false
	}

	return uint(id), true
}
