package user

import (
	"bitwise74/career-api/internal"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type verifyBody struct {
	Email  string `json:"email" form:"email" validate:"required"`
	Code   string `json:"code" form:"code" validate:"required"`
	UserID uint   `json:"user_id" form:"user_id"`
}

func UserVerify(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if data.Email == "" || data.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Email and code are required",
			"requestID": requestID,
		})
		return
	}

	ok, err := d.Auth.VerifyCode(c.Request.Context(), data.Email, data.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to verify code", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"error":     "Invalid or expired code",
			"requestID": requestID,
		})
		return
	}

	res := gin.H{"success": true}
	if data.UserID != 0 {
		res["redirect_url"] = fmt.Sprintf("/questions?user_id=%d", data.UserID)
	}

	c.JSON(http.StatusOK, res)
}
