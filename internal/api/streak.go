package api

import (
	"errors"
	"net/http"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/service"
	"meowchi_miniapp/pkg/auth"

	"github.com/gin-gonic/gin"
)

type streakRoutes struct {
	ss service.StreakServiceI
}

func NewStreakRoutes(handler *gin.RouterGroup, ss service.StreakServiceI, a *auth.TelegramAuth) {
	r := &streakRoutes{ss: ss}
	h := handler.Group("/streak")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/", r.GetStatus)
		h.POST("/claim", r.Claim)
	}
}

type DayRewardResponse struct {
	Day    int `json:"day"`
	Reward int `json:"reward"`
}

type StreakStatusResponse struct {
	UserTelegramID  int64               `json:"user_telegram_id"`
	LastClaimDay    *string             `json:"last_claim_day,omitempty"`
	NextClaimDay    string              `json:"next_claim_day"`
	IsAvailable     bool                `json:"is_available"`
	ConsecutiveDays int                 `json:"consecutive_days"`
	DailyRewards    []DayRewardResponse `json:"daily_rewards"`
}

func (r *streakRoutes) GetStatus(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := r.ss.GetStatus(c.Request.Context(), u.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, "failed to get streak status", err)
		return
	}

	c.JSON(http.StatusOK, toStreakResponse(status))
}

func (r *streakRoutes) Claim(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	status, reward, err := r.ss.Claim(c.Request.Context(), u.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrClaimNotAvailable):
			c.JSON(http.StatusForbidden, gin.H{"error": "streak reward already claimed today"})
		default:
			respondError(c, "failed to claim streak reward", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reward": reward,
		"streak": toStreakResponse(status),
	})
}

func toStreakResponse(status *model.Streak) StreakStatusResponse {
	rewards := make([]DayRewardResponse, len(status.DailyRewards))
	for i, reward := range status.DailyRewards {
		rewards[i] = DayRewardResponse{
			Day:    reward.Day,
			Reward: reward.Reward,
		}
	}

	out := StreakStatusResponse{
		UserTelegramID:  status.UserTelegramID,
		NextClaimDay:    status.NextClaimDay.String(),
		IsAvailable:     status.IsAvailable,
		ConsecutiveDays: status.ConsecutiveDays,
		DailyRewards:    rewards,
	}
	if status.LastClaimDay != nil {
		last := status.LastClaimDay.String()
		out.LastClaimDay = &last
	}

	return out
}
