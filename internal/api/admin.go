package api

import (
	"context"
	"net/http"

	"meowchi_miniapp/internal/middleware"
	"meowchi_miniapp/pkg/auth"
	"meowchi_miniapp/pkg/calendar"
	"meowchi_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DayResetter interface {
	RunOnce(ctx context.Context, day calendar.Day) (int64, error)
}

type adminRoutes struct {
	reset DayResetter
	cal   *calendar.Calendar
}

func NewAdminRoutes(
	handler *gin.RouterGroup,
	reset DayResetter,
	cal *calendar.Calendar,
	a *auth.TelegramAuth,
	authz *middleware.Authorization,
) {
	r := &adminRoutes{reset: reset, cal: cal}
	h := handler.Group("/admin")
	h.Use(a.TelegramAuthMiddleware(), authz.AdminOnly())
	{
		h.POST("/meow/reset", r.ResetDay)
	}
}

func (r *adminRoutes) ResetDay(c *gin.Context) {
	day := r.cal.Today()

	n, err := r.reset.RunOnce(c.Request.Context(), day)
	if err != nil {
		respondError(c, "failed to reset day", err)
		return
	}

	logger.Logger().Info("manual daily reset", zap.String("day", day.String()), zap.Int64("reset_rows", n))
	c.JSON(http.StatusOK, gin.H{"day": day, "resetRows": n})
}
