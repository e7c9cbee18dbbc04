package api

import (
	"errors"
	"net/http"

	"meowchi_miniapp/internal/service"
	"meowchi_miniapp/pkg/auth"
	"meowchi_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func currentUser(c *gin.Context) (*auth.TelegramUserData, bool) {
	u, ok := auth.UserFromContext(c)
	if !ok {
		logger.Logger().Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}
	return u, true
}

// respondError answers storage failures: transient ones as 503 so the
// client retries, everything else as 500.
func respondError(c *gin.Context, msg string, err error) {
	log := logger.Logger()

	if errors.Is(err, service.ErrTransient) {
		log.Warn(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "TRY_AGAIN", "message": "temporary failure, please retry"})
		return
	}

	log.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
