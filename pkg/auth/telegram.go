package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meowchi_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"
)

const (
	expTime = 24 * time.Hour

	ContextKey = "telegram_user"
	scheme     = "Telegram "
)

var ErrMissingUser = errors.New("init data has no user")

type TelegramAuth struct {
	botToken  string
	debugMode bool
}

func NewTelegramAuth(botToken string, debugMode bool) *TelegramAuth {
	return &TelegramAuth{
		botToken:  botToken,
		debugMode: debugMode,
	}
}

func (t *TelegramAuth) TelegramAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !strings.HasPrefix(authHeader, scheme) {
			log.Info("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		initData := strings.TrimPrefix(authHeader, scheme)
		if !t.debugMode {
			if err := initdata.Validate(initData, t.botToken, expTime); err != nil {
				log.Info("invalid telegram init data", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram auth data"})
				return
			}
		}

		telegramUserData, err := ExtractTelegramData(initData)
		if err != nil {
			log.Info("failed to extract telegram data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram data"})
			return
		}

		c.Set(ContextKey, telegramUserData)
		c.Next()
	}
}

type TelegramUserData struct {
	ID        int64
	Username  string
	FirstName string
	AuthDate  time.Time
}

// UserFromContext returns the identity stored by TelegramAuthMiddleware.
func UserFromContext(c *gin.Context) (*TelegramUserData, bool) {
	v, exists := c.Get(ContextKey)
	if !exists {
		return nil, false
	}
	u, ok := v.(*TelegramUserData)
	return u, ok && u != nil
}

func ExtractTelegramData(initData string) (*TelegramUserData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}

	authDateUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, err
	}

	var userData struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
	}

	if err := json.Unmarshal([]byte(values.Get("user")), &userData); err != nil {
		return nil, err
	}
	if userData.ID == 0 {
		return nil, ErrMissingUser
	}

	return &TelegramUserData{
		ID:        userData.ID,
		Username:  userData.Username,
		FirstName: userData.FirstName,
		AuthDate:  time.Unix(authDateUnix, 0),
	}, nil
}
