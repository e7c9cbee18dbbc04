package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/service"
	"meowchi_miniapp/pkg/auth"
	"meowchi_miniapp/pkg/calendar"
	"meowchi_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type QuotaSubscriber interface {
	Subscribe() (<-chan model.QuotaUpdate, func())
}

type meowRoutes struct {
	ms       service.MeowServiceI
	throttle service.Throttle
	hub      QuotaSubscriber
	cal      *calendar.Calendar
}

func NewMeowRoutes(
	handler *gin.RouterGroup,
	ms service.MeowServiceI,
	throttle service.Throttle,
	hub QuotaSubscriber,
	cal *calendar.Calendar,
	a *auth.TelegramAuth,
) {
	r := &meowRoutes{ms: ms, throttle: throttle, hub: hub, cal: cal}
	h := handler.Group("/meow")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/tap", r.Tap)
		h.POST("/claim-status", r.ClaimStatus)
		h.POST("/claim", r.Claim)
		h.GET("/claims/:claim_id", r.VerifyClaim)
		h.GET("/ws", r.QuotaStream)
	}
}

type TapResponse struct {
	Count           int    `json:"count"`
	Capped          bool   `json:"capped"`
	Day             string `json:"day"`
	Eligible        *bool  `json:"eligible,omitempty"`
	UsedToday       *bool  `json:"usedToday,omitempty"`
	RemainingGlobal *int   `json:"remainingGlobal,omitempty"`
}

type ClaimStatusResponse struct {
	Eligible        bool      `json:"eligible"`
	UsedToday       bool      `json:"usedToday"`
	RemainingGlobal int       `json:"remainingGlobal"`
	Count           int       `json:"count"`
	Day             string    `json:"day"`
	EndsAt          time.Time `json:"endsAt"`
}

type ClaimResponse struct {
	Success         bool   `json:"success"`
	ClaimID         string `json:"claimId,omitempty"`
	Day             string `json:"day,omitempty"`
	RemainingGlobal *int   `json:"remainingGlobal,omitempty"`
	Error           string `json:"error,omitempty"`
	Message         string `json:"message,omitempty"`
}

func (r *meowRoutes) Tap(c *gin.Context) {
	log := logger.Logger()

	u, ok := currentUser(c)
	if !ok {
		return
	}

	if allowed, retryAfter := r.throttle.Allow(c.Request.Context(), u.ID); !allowed {
		log.Debug("tap throttled", zap.Int64("telegram_id", u.ID))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "TOO_FAST",
			"message":      "slow down a little",
			"retryAfterMs": retryAfter.Milliseconds(),
		})
		return
	}

	result, err := r.ms.RecordTap(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, "failed to record tap", err)
		return
	}

	out := TapResponse{
		Count:  result.Count,
		Capped: result.Capped,
		Day:    result.Day.String(),
	}
	if e := result.Eligibility; e != nil {
		out.Eligible = &e.Eligible
		out.UsedToday = &e.UsedToday
		out.RemainingGlobal = &e.RemainingGlobal
	}

	c.JSON(http.StatusOK, out)
}

func (r *meowRoutes) ClaimStatus(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := r.ms.EvaluateEligibility(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, "failed to get claim status", err)
		return
	}

	c.JSON(http.StatusOK, ClaimStatusResponse{
		Eligible:        status.Eligible,
		UsedToday:       status.UsedToday,
		RemainingGlobal: status.RemainingGlobal,
		Count:           status.Count,
		Day:             status.Day.String(),
		EndsAt:          status.EndsAt,
	})
}

func (r *meowRoutes) Claim(c *gin.Context) {
	log := logger.Logger()

	u, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := r.ms.Claim(c.Request.Context(), u.ID)
	if err != nil {
		var rejection *service.Rejection
		if errors.As(err, &rejection) {
			log.Info("claim rejected",
				zap.Int64("telegram_id", u.ID),
				zap.String("reason", rejection.Code))
			c.JSON(http.StatusOK, ClaimResponse{
				Success: false,
				Error:   rejection.Code,
				Message: rejection.Message,
			})
			return
		}
		respondError(c, "failed to claim", err)
		return
	}

	log.Info("claim accepted",
		zap.Int64("telegram_id", u.ID),
		zap.String("claim_id", result.ClaimID.String()),
		zap.String("day", result.Day.String()))

	c.JSON(http.StatusOK, ClaimResponse{
		Success:         true,
		ClaimID:         result.ClaimID.String(),
		Day:             result.Day.String(),
		RemainingGlobal: &result.RemainingGlobal,
	})
}

func (r *meowRoutes) VerifyClaim(c *gin.Context) {
	u, ok := currentUser(c)
	if !ok {
		return
	}

	claimID, err := uuid.Parse(c.Param("claim_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim_id"})
		return
	}

	valid, err := r.ms.VerifyClaim(c.Request.Context(), claimID, u.ID)
	if err != nil {
		respondError(c, "failed to verify claim", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// QuotaStream pushes the remaining global slots: a snapshot on connect and
// every change published by claims and the reset job afterwards.
func (r *meowRoutes) QuotaStream(c *gin.Context) {
	log := logger.Logger()

	today := r.cal.Today()
	remaining, err := r.ms.Remaining(c.Request.Context(), today)
	if err != nil {
		respondError(c, "failed to get remaining quota", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	updates, unsubscribe := r.hub.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Info("websocket unexpected close", zap.Error(err))
				}
				return
			}
		}
	}()

	go func() {
		defer func() {
			unsubscribe()
			conn.Close()
		}()

		if err := writeWS(conn, "quota_update", model.QuotaUpdate{Day: today, RemainingGlobal: remaining}); err != nil {
			return
		}

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case update, open := <-updates:
				if !open {
					return
				}
				if err := writeWS(conn, "quota_update", update); err != nil {
					log.Info("websocket write failed", zap.Error(err))
					return
				}
			case <-ping.C:
				deadline := time.Now().Add(wsWriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()
}

func writeWS(conn *websocket.Conn, msgType string, payload any) error {
	out, err := json.Marshal(wsMessage{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, out)
}
