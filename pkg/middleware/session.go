package middleware

import (
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/pkg/util"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errInvalidUserID = errors.New("invalid user id")

// NewSessionGate lets a request through only when the user_id it carries
// holds the session for the caller's address. The id is read from the
// query, then a JSON body, then a form body, and stored as userID.
func NewSessionGate(sessions *repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		raw, err := lookupUserID(c)
		if err != nil && !errors.Is(err, errInvalidUserID) {
			zap.L().Error("Failed to read request body", zap.Error(err), zap.String("requestID", requestID))
		}

		if raw == "" && err == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "User ID required",
				"requestID": requestID,
			})
			return
		}

		userID, perr := strconv.ParseUint(raw, 10, 0)
		if err != nil || perr != nil || userID == 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Invalid user ID",
				"requestID": requestID,
			})
			return
		}

		ok, err := sessions.VerifyAccess(c.Request.Context(), uint(userID), util.NormalizeIP(c.ClientIP()))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to verify session", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Access denied",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", uint(userID))
		c.Next()
	}
}

func lookupUserID(c *gin.Context) (string, error) {
	if v, ok := c.GetQuery("user_id"); ok {
		return strings.TrimSpace(v), nil
	}

	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return "", nil
	}

	switch c.ContentType() {
	case gin.MIMEJSON:
		body, err := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return "", err
		}

		return userIDFromJSON(body)
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return strings.TrimSpace(c.PostForm("user_id")), nil
	}

	return "", nil
}

func userIDFromJSON(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		// Not an object, the handler reports the bad body
		return "", nil
	}

	raw, ok := payload["user_id"]
	if !ok || string(raw) == "null" {
		return "", nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	return "", errInvalidUserID
}
