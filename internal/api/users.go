package api

import (
	"errors"
	"net/http"
	"time"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/service"
	"meowchi_miniapp/pkg/auth"
	"meowchi_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us service.UserServiceI
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.TelegramAuth) {
	r := &userRoutes{us: us}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/", r.RegisterUser)
		h.GET("/me", r.GetMe)
		h.GET("/leaderboard", r.GetLeaderboard)
	}
}

type UserResponse struct {
	TelegramID       int64     `json:"telegram_id"`
	Username         string    `json:"username"`
	FirstName        string    `json:"first_name"`
	Points           int       `json:"points"`
	RegistrationDate time.Time `json:"registration_date"`
}

func (r *userRoutes) RegisterUser(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	u := &model.User{
		TelegramID:       tgUser.ID,
		Username:         tgUser.Username,
		FirstName:        tgUser.FirstName,
		AuthDate:         tgUser.AuthDate,
		RegistrationDate: time.Now().UTC(),
	}

	status := http.StatusCreated
	err := r.us.RegisterUser(c.Request.Context(), u)
	switch {
	case err == nil:
		log.Info("user registered", zap.Int64("telegram_id", u.TelegramID))
	case errors.Is(err, service.ErrUserAlreadyExists):
		status = http.StatusOK
	default:
		respondError(c, "failed to register user", err)
		return
	}

	user, err := r.us.GetUserByTelegramID(c.Request.Context(), u.TelegramID)
	if err != nil {
		respondError(c, "failed to load user", err)
		return
	}

	c.JSON(status, toUserResponse(user))
}

func (r *userRoutes) GetMe(c *gin.Context) {
	tgUser, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := r.us.GetUserByTelegramID(c.Request.Context(), tgUser.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		respondError(c, "failed to get user", err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	users, err := r.us.GetLeaderboard(c.Request.Context())
	if err != nil {
		respondError(c, "failed to get leaderboard", err)
		return
	}

	response := make([]gin.H, 0, len(users))
	for i, user := range users {
		response = append(response, gin.H{
			"rank":       i + 1,
			"username":   user.Username,
			"first_name": user.FirstName,
			"points":     user.Points,
		})
	}

	c.JSON(http.StatusOK, response)
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		TelegramID:       u.TelegramID,
		Username:         u.Username,
		FirstName:        u.FirstName,
		Points:           u.Points,
		RegistrationDate: u.RegistrationDate,
	}
}
