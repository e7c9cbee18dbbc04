package api

import (
	"context"
	"fmt"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/pkg/calendar"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockMeowService struct {
	mock.Mock
}

func (m *mockMeowService) RecordTap(ctx context.Context, userID int64) (*model.TapResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TapResult), args.Error(1)
}

func (m *mockMeowService) Peek(ctx context.Context, userID int64) (*model.DailyState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyState), args.Error(1)
}

func (m *mockMeowService) Remaining(ctx context.Context, day calendar.Day) (int, error) {
	args := m.Called(ctx, day)
	return args.Int(0), args.Error(1)
}

func (m *mockMeowService) EvaluateEligibility(ctx context.Context, userID int64) (*model.Eligibility, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Eligibility), args.Error(1)
}

func (m *mockMeowService) Claim(ctx context.Context, userID int64) (*model.ClaimResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimResult), args.Error(1)
}

func (m *mockMeowService) VerifyClaim(ctx context.Context, claimID uuid.UUID, userID int64) (bool, error) {
	args := m.Called(ctx, claimID, userID)
	return args.Bool(0), args.Error(1)
}

type stubThrottle struct {
	allow bool
	retry time.Duration
}

func (s stubThrottle) Allow(context.Context, int64) (bool, time.Duration) {
	return s.allow, s.retry
}

// 2025-10-10 18:00 UTC is 23:00 in Tashkent.
func fixedCalendar() *calendar.Calendar {
	return calendar.NewWithClock(func() time.Time {
		return time.Date(2025, 10, 10, 18, 0, 0, 0, time.UTC)
	})
}

func authHeader(userID int64) string {
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	v.Set("user", fmt.Sprintf(`{"id":%d,"username":"cat%d"}`, userID, userID))
	return "Telegram " + v.Encode()
}

func doRequest(router *gin.Engine, method, path string, userID int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", authHeader(userID))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
