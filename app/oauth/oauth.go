package oauth

import (
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/service"
	"bitwise74/career-api/pkg/util"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OAuthStart sends the browser to the provider's consent page
func OAuthStart(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	provider := c.Param("provider")

	url, err := d.OAuth.AuthURL(c.Request.Context(), provider)
	if err != nil {
		if errors.Is(err, service.ErrUnknownProvider) {
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

		zap.L().Error("Failed to start OAuth flow", zap.Error(err), zap.String("provider", provider), zap.String("requestID", requestID))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, url)
}

// OAuthCallback finishes the provider round trip and sends the user to
// the questions page
func OAuthCallback(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	provider := c.Param("provider")

	if _, ok := d.OAuth.Providers[provider]; !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     service.ErrUnknownProvider.Error(),
			"requestID": requestID,
		})
		return
	}

	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "OAuth error: " + e,
			"requestID": requestID,
		})
		return
	}

	code, state := c.Query("code"), c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Missing code parameter",
			"requestID": requestID,
		})
		return
	}

	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No state parameter received",
			"requestID": requestID,
		})
		return
	}

	user, err := d.OAuth.Callback(c.Request.Context(), provider, code, state, util.NormalizeIP(c.ClientIP()))
	if err != nil {
		var (
			verr *service.ValidationError
			uerr *service.UpstreamError
		)

		switch {
		case errors.Is(err, service.ErrInvalidState):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid or expired state",
				"requestID": requestID,
			})
		case errors.As(err, &uerr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     fmt.Sprintf("Failed to sign in with %s", provider),
				"step":      uerr.Step,
				"status":    uerr.Status,
				"requestID": requestID,
			})

			zap.L().Warn("OAuth provider call failed", zap.Error(err), zap.String("body", uerr.Body), zap.String("requestID", requestID))
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     verr.Error(),
				"requestID": requestID,
			})
		case errors.Is(err, service.ErrAccountExists), errors.Is(err, repository.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{
				"error":     service.ErrAccountExists.Error(),
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("OAuth login failed", zap.Error(err), zap.String("provider", provider), zap.String("requestID", requestID))
		}
		return
	}

	target := fmt.Sprintf("%s/questions?user_id=%d", strings.TrimRight(d.Frontend, "/"), user.ID)
	c.Redirect(http.StatusSeeOther, target)
}
